// Package http implements lawdoc.Session over net/http for portals that
// serve complete HTML without JavaScript rendering.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/lawdoc"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

// Ensure Session implements lawdoc.Session at compile time.
var _ lawdoc.Session = (*Session)(nil)

// AcceptLanguage is sent with every request; the portals serve the same
// pages regardless but some CDN rules reject requests without it.
const AcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"

// Session issues requests for one source. It keeps a cookie jar for its
// lifetime, rotates user agents round-robin and waits on its limiter
// before every request.
type Session struct {
	client        *http.Client
	timeout       time.Duration
	userAgents    []string
	proxy         string
	limiter       lawdoc.DomainLimiter
	respectRobots bool

	next atomic.Uint64

	mu     sync.Mutex
	robots map[string]*robotstxt.Group
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the per-request timeout.
// Defaults to lawdoc.DefaultTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithUserAgents sets the pool of user agents rotated across requests.
// Defaults to lawdoc.DefaultUserAgents.
func WithUserAgents(agents []string) Option {
	return func(s *Session) {
		if len(agents) > 0 {
			s.userAgents = agents
		}
	}
}

// WithProxy routes requests through the proxy at rawURL.
func WithProxy(rawURL string) Option {
	return func(s *Session) {
		s.proxy = rawURL
	}
}

// WithLimiter sets the limiter waited on before each request, keyed by
// host.
func WithLimiter(l lawdoc.DomainLimiter) Option {
	return func(s *Session) {
		s.limiter = l
	}
}

// WithRobots enables robots.txt checks. Paths disallowed for the current
// user agent fail with EPERMANENT.
func WithRobots(respect bool) Option {
	return func(s *Session) {
		s.respectRobots = respect
	}
}

// NewSession creates a new Session with an empty cookie jar.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		timeout:    lawdoc.DefaultTimeout,
		userAgents: lawdoc.DefaultUserAgents,
		robots:     make(map[string]*robotstxt.Group),
	}
	for _, opt := range opts {
		opt(s)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.EINTERNAL, "failed to create cookie jar: %v", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.proxy != "" {
		proxyURL, err := url.Parse(s.proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, lawdoc.Errorf(lawdoc.ECONFIG, "invalid proxy URL %q", s.proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	s.client = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   s.timeout,
	}
	return s, nil
}

// Fetch issues the request and returns the body decoded to UTF-8 using the
// charset declared by the response.
func (s *Session) Fetch(ctx context.Context, req *lawdoc.Request) ([]byte, error) {
	resp, err := s.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		r = resp.Body
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, classify(err)
	}
	return body, nil
}

// Download streams the file at rawURL to w without decoding.
func (s *Session) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	resp, err := s.do(ctx, &lawdoc.Request{Method: http.MethodGet, URL: rawURL})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, classify(err)
	}
	return n, nil
}

// Close releases idle connections.
func (s *Session) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Session) do(ctx context.Context, req *lawdoc.Request) (*http.Response, error) {
	target := req.FullURL()
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method == http.MethodPost {
		target = req.URL
		body = strings.NewReader(req.Params.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.EPERMANENT, "invalid request URL %q: %v", target, err)
	}

	ua := s.userAgent()
	httpReq.Header.Set("User-Agent", ua)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", AcceptLanguage)
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if s.respectRobots && !s.allowed(ctx, httpReq.URL, ua) {
		return nil, lawdoc.Errorf(lawdoc.EPERMANENT, "disallowed by robots.txt: %s", target)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, httpReq.URL.Host); err != nil {
			return nil, err
		}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	if err := checkStatus(resp, target); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (s *Session) userAgent() string {
	n := s.next.Add(1) - 1
	return s.userAgents[n%uint64(len(s.userAgents))]
}

// allowed reports whether robots.txt on u's host permits the path. A host
// whose robots.txt cannot be read allows everything.
func (s *Session) allowed(ctx context.Context, u *url.URL, ua string) bool {
	s.mu.Lock()
	group, ok := s.robots[u.Host]
	s.mu.Unlock()

	if !ok {
		group = s.loadRobots(ctx, u)
		s.mu.Lock()
		s.robots[u.Host] = group
		s.mu.Unlock()
	}
	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (s *Session) loadRobots(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", s.userAgents[0])

	resp, err := s.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(s.userAgents[0])
}

// checkStatus maps an unsuccessful status code to an error code.
func checkStatus(resp *http.Response, target string) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return lawdoc.Errorf(lawdoc.ERATELIMIT, "HTTP %d for %s", code, target)
	case code == http.StatusRequestTimeout || code >= 500:
		return lawdoc.Errorf(lawdoc.ETRANSIENT, "HTTP %d for %s", code, target)
	default:
		return lawdoc.Errorf(lawdoc.EPERMANENT, "HTTP %d for %s", code, target)
	}
}

// classify maps a transport error to an error code. Context cancellation
// is returned unchanged.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return lawdoc.Errorf(lawdoc.ETRANSIENT, "timeout: %v", err)
	}
	return lawdoc.Errorf(lawdoc.ETRANSIENT, "request failed: %v", err)
}

// Ensure SessionFactory implements lawdoc.SessionFactory at compile time.
var _ lawdoc.SessionFactory = (*SessionFactory)(nil)

// SessionFactory opens one Session per source. Each session gets its own
// cookie jar and, when NewLimiter is set, its own limiter.
type SessionFactory struct {
	Options    []Option
	NewLimiter func() lawdoc.DomainLimiter
}

// NewSession implements lawdoc.SessionFactory.
func (f *SessionFactory) NewSession(_ *lawdoc.SourceConfig) (lawdoc.Session, error) {
	opts := append([]Option{}, f.Options...)
	if f.NewLimiter != nil {
		opts = append(opts, WithLimiter(f.NewLimiter()))
	}
	return NewSession(opts...)
}
