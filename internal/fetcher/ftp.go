package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures FTPFetcher.
type FTPOptions struct {
	Timeout  time.Duration
	MaxBytes int64 // download cap for DownloadToFile, default DefaultMaxBytes
}

// FTPFetcher downloads import sources from ftp:// URLs. Each download uses
// its own control connection.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher fills unset options with defaults.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &FTPFetcher{opts: opts}
}

// ftpSource is a parsed ftp:// URL. Without userinfo it logs in anonymously.
type ftpSource struct {
	addr string // host:port
	path string
	user string
	pass string
}

func parseFTPSource(rawURL string) (ftpSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpSource{}, eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return ftpSource{}, eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpSource{}, eris.Errorf("ftp: no file path in %s", u.Redacted())
	}

	src := ftpSource{addr: u.Host, path: u.Path, user: "anonymous", pass: "anonymous@"}
	if u.Port() == "" {
		src.addr = net.JoinHostPort(u.Hostname(), "21")
	}
	if u.User != nil {
		src.user = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			src.pass = pw
		}
	}
	return src, nil
}

// ftpBody streams a RETR response; Close also ends the session.
type ftpBody struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	respErr := b.Response.Close()
	quitErr := b.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "ftp: close transfer")
	}
	return eris.Wrap(quitErr, "ftp: quit")
}

// Download logs in and starts retrieving the file named by rawURL. Closing
// the returned body releases the connection.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	src, err := parseFTPSource(rawURL)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("ftp: connecting",
		zap.String("addr", src.addr),
		zap.String("path", src.path),
		zap.String("user", src.user),
	)

	conn, err := ftp.Dial(src.addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: dial %s", src.addr)
	}
	if err := conn.Login(src.user, src.pass); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrapf(err, "ftp: login as %s", src.user)
	}
	resp, err := conn.Retr(src.path)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrapf(err, "ftp: retr %s", src.path)
	}
	return &ftpBody{Response: resp, conn: conn}, nil
}

// DownloadToFile saves rawURL to path, failing once MaxBytes is exceeded.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	n, err := writeFile(body, path, f.opts.MaxBytes)
	if err != nil {
		return n, eris.Wrap(err, "ftp: save")
	}
	return n, nil
}
