// Package fetcher retrieves import sources from local paths, HTTP(S) and FTP,
// and parses CSV and XLSX content into string rows.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher retrieves a source by location.
type Fetcher interface {
	// Download opens the source. The caller must close the returned body.
	Download(ctx context.Context, source string) (io.ReadCloser, error)

	// DownloadToFile copies the source to path. Returns bytes written.
	DownloadToFile(ctx context.Context, source string, path string) (int64, error)
}

// DefaultMaxBytes caps remote downloads when no limit is configured.
const DefaultMaxBytes int64 = 256 << 20

// Options bundles the per-scheme fetcher options.
type Options struct {
	HTTP HTTPOptions
	FTP  FTPOptions
}

// ForSource picks the fetcher for source by scheme: http and https go to
// HTTPFetcher, ftp to FTPFetcher, file URLs and bare paths to FileFetcher.
func ForSource(source string, opts Options) (Fetcher, error) {
	switch scheme(source) {
	case "http", "https":
		return NewHTTPFetcher(opts.HTTP), nil
	case "ftp":
		return NewFTPFetcher(opts.FTP), nil
	case "", "file":
		return FileFetcher{}, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported source scheme %q", scheme(source))
	}
}

// scheme returns the lower-cased URL scheme of source, or "" for plain paths.
func scheme(source string) string {
	i := strings.Index(source, "://")
	if i <= 0 {
		return ""
	}
	u, err := url.Parse(source)
	if err != nil {
		return strings.ToLower(source[:i])
	}
	return strings.ToLower(u.Scheme)
}

// FileFetcher reads sources from the local filesystem.
type FileFetcher struct{}

func localPath(source string) string {
	if scheme(source) == "file" {
		if u, err := url.Parse(source); err == nil {
			return u.Path
		}
	}
	return source
}

// Download opens the file at source.
func (FileFetcher) Download(_ context.Context, source string) (io.ReadCloser, error) {
	f, err := os.Open(localPath(source))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open file")
	}
	return f, nil
}

// DownloadToFile copies the file at source to path.
func (ff FileFetcher) DownloadToFile(ctx context.Context, source string, path string) (int64, error) {
	body, err := ff.Download(ctx, source)
	if err != nil {
		return 0, err
	}
	return writeFile(body, path, 0)
}

// writeFile copies body to a new file at path and closes body. A positive
// limit fails the copy once more than limit bytes arrive.
func writeFile(body io.ReadCloser, path string, limit int64) (int64, error) {
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	var src io.Reader = body
	if limit > 0 {
		src = io.LimitReader(body, limit+1)
	}
	n, err := io.Copy(file, src)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	if limit > 0 && n > limit {
		return n, eris.Errorf("source exceeds %d bytes", limit)
	}
	return n, nil
}
