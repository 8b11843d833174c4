// Package rod implements lawdoc.Session with a headless Chrome browser for
// sources whose pages are assembled by JavaScript.
package rod

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/fwojciec/lawdoc"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Session implements lawdoc.Session at compile time.
var _ lawdoc.Session = (*Session)(nil)

// Session renders pages for one source. Each session owns its browser, so
// cookies are not shared between sources. Files are not rendered; Download
// is delegated to a plain HTTP downloader.
//
// Session is safe for concurrent use.
type Session struct {
	browser    *BrowserManager
	files      lawdoc.Downloader
	limiter    lawdoc.DomainLimiter
	userAgents []string
	timeout    time.Duration
	next       atomic.Uint64
}

// Option configures a Session.
type Option func(*Session)

// WithDownloader sets the downloader used for attachments.
func WithDownloader(d lawdoc.Downloader) Option {
	return func(s *Session) {
		s.files = d
	}
}

// WithLimiter sets the limiter waited on before each navigation.
func WithLimiter(l lawdoc.DomainLimiter) Option {
	return func(s *Session) {
		s.limiter = l
	}
}

// WithUserAgents sets the pool of user agents rotated across pages.
func WithUserAgents(agents []string) Option {
	return func(s *Session) {
		if len(agents) > 0 {
			s.userAgents = agents
		}
	}
}

// WithTimeout bounds each navigation.
// Defaults to lawdoc.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// NewSession creates a Session rendering pages with browser.
func NewSession(browser *BrowserManager, opts ...Option) *Session {
	s := &Session{
		browser:    browser,
		userAgents: lawdoc.DefaultUserAgents,
		timeout:    lawdoc.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch navigates to the request URL and returns the rendered HTML. Only
// GET requests can be rendered.
func (s *Session) Fetch(ctx context.Context, req *lawdoc.Request) (body []byte, err error) {
	if req.Method != "" && req.Method != http.MethodGet {
		return nil, lawdoc.Errorf(lawdoc.EPERMANENT, "render session cannot issue %s requests", req.Method)
	}
	target := req.FullURL()
	u, err := url.Parse(target)
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.EPERMANENT, "invalid request URL %q: %v", target, err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, u.Host); err != nil {
			return nil, err
		}
	}

	page, err := s.browser.NewPage()
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.ETRANSIENT, "render %s: %v", target, err)
	}
	defer page.Close()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	page = page.Context(ctx)

	ua := s.userAgents[(s.next.Add(1)-1)%uint64(len(s.userAgents))]
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
	}); err != nil {
		return nil, classify(ctx, target, err)
	}
	if req.Referer != "" {
		cleanup, err := page.SetExtraHeaders([]string{"Referer", req.Referer})
		if err != nil {
			return nil, classify(ctx, target, err)
		}
		defer cleanup()
	}

	if err := page.Navigate(target); err != nil {
		return nil, classify(ctx, target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, classify(ctx, target, err)
	}
	html, err := page.HTML()
	if err != nil {
		return nil, classify(ctx, target, err)
	}
	return []byte(html), nil
}

// Download delegates to the configured downloader.
func (s *Session) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	if s.files == nil {
		return 0, lawdoc.Errorf(lawdoc.EPERMANENT, "render session has no downloader for %s", rawURL)
	}
	return s.files.Download(ctx, rawURL, w)
}

// Close shuts the session's browser down, along with the downloader when
// it can be closed.
func (s *Session) Close() error {
	var errs []error
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if c, ok := s.files.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// classify maps browser errors to error codes. Cancellation by the caller
// is returned unchanged; everything else, including navigation timeouts,
// is transient.
func classify(ctx context.Context, target string, err error) error {
	if errors.Is(err, context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	return lawdoc.Errorf(lawdoc.ETRANSIENT, "render %s: %v", target, err)
}

// Ensure SessionFactory implements lawdoc.SessionFactory at compile time.
var _ lawdoc.SessionFactory = (*SessionFactory)(nil)

// SessionFactory launches one browser per source. Attachments are
// downloaded through sessions from Downloads.
type SessionFactory struct {
	ManagerOptions []ManagerOption
	Options        []Option
	NewLimiter     func() lawdoc.DomainLimiter
	Downloads      lawdoc.SessionFactory
}

// NewSession implements lawdoc.SessionFactory.
func (f *SessionFactory) NewSession(src *lawdoc.SourceConfig) (lawdoc.Session, error) {
	opts := append([]Option{}, f.Options...)
	if f.NewLimiter != nil {
		opts = append(opts, WithLimiter(f.NewLimiter()))
	}
	if f.Downloads != nil {
		files, err := f.Downloads.NewSession(src)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDownloader(files))
	}

	browser, err := NewBrowserManager(f.ManagerOptions...)
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.ECONFIG, "source %q: %v", src.Name, err)
	}
	return NewSession(browser, opts...), nil
}
