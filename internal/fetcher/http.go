package fetcher

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures HTTPFetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Rate      rate.Limit // requests per second per host, default 5
	MaxBytes  int64      // download cap for DownloadToFile, default DefaultMaxBytes
}

// HTTPFetcher downloads import sources over HTTP(S). Requests to the same
// host are paced by a shared limiter. Failed requests are not retried; the
// import halts on the first error.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// NewHTTPFetcher fills unset options with defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "emissions-dashboard/1.0"
	}
	if opts.Rate == 0 {
		opts.Rate = 5
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:  opts,
		hosts: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) wait(ctx context.Context, host string) error {
	f.mu.Lock()
	lim, ok := f.hosts[host]
	if !ok {
		lim = rate.NewLimiter(f.opts.Rate, 1)
		f.hosts[host] = lim
	}
	f.mu.Unlock()
	return lim.Wait(ctx)
}

// Download issues a GET for rawURL and returns the body of a 200 response.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http: build request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*;q=0.5")

	if err := f.wait(ctx, req.URL.Host); err != nil {
		return nil, eris.Wrap(err, "http: rate limit")
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "http: get")
	}
	zap.L().Debug("http: response",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int64("content_length", resp.ContentLength),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("http: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	if resp.ContentLength > f.opts.MaxBytes {
		_ = resp.Body.Close()
		return nil, eris.Errorf("http: %s is %d bytes, limit is %d", rawURL, resp.ContentLength, f.opts.MaxBytes)
	}
	return resp.Body, nil
}

// DownloadToFile saves rawURL to path, failing once MaxBytes is exceeded.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	n, err := writeFile(body, path, f.opts.MaxBytes)
	if err != nil {
		return n, eris.Wrap(err, "http: save")
	}
	return n, nil
}
