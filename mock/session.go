package mock

import (
	"context"
	"io"

	"github.com/fwojciec/lawdoc"
)

var _ lawdoc.Session = (*Session)(nil)

// Session is a mock implementation of lawdoc.Session.
type Session struct {
	FetchFn    func(ctx context.Context, req *lawdoc.Request) ([]byte, error)
	DownloadFn func(ctx context.Context, url string, w io.Writer) (int64, error)
	CloseFn    func() error
}

func (s *Session) Fetch(ctx context.Context, req *lawdoc.Request) ([]byte, error) {
	return s.FetchFn(ctx, req)
}

func (s *Session) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	return s.DownloadFn(ctx, url, w)
}

// Close calls CloseFn when set.
func (s *Session) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

var _ lawdoc.SessionFactory = (*SessionFactory)(nil)

// SessionFactory is a mock implementation of lawdoc.SessionFactory.
type SessionFactory struct {
	NewSessionFn func(src *lawdoc.SourceConfig) (lawdoc.Session, error)
}

func (f *SessionFactory) NewSession(src *lawdoc.SourceConfig) (lawdoc.Session, error) {
	return f.NewSessionFn(src)
}

var _ lawdoc.Downloader = (*Downloader)(nil)

// Downloader is a mock implementation of lawdoc.Downloader.
type Downloader struct {
	DownloadFn func(ctx context.Context, url string, w io.Writer) (int64, error)
}

func (d *Downloader) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	return d.DownloadFn(ctx, url, w)
}

var _ lawdoc.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of lawdoc.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
