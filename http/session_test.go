package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/lawdoc"
	lawdochttp "github.com/fwojciec/lawdoc/http"
	"github.com/fwojciec/lawdoc/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func newSession(t *testing.T, opts ...lawdochttp.Option) *lawdochttp.Session {
	t.Helper()
	s, err := lawdochttp.NewSession(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns the body and sends identification headers", func(t *testing.T) {
		t.Parallel()

		var got *http.Request
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>自然资源部</body></html>"))
		}))
		defer server.Close()

		s := newSession(t, lawdochttp.WithUserAgents([]string{"agent-a"}))

		body, err := s.Fetch(context.Background(), &lawdoc.Request{
			URL:     server.URL + "/was5/web/search",
			Params:  url.Values{"channelid": {"174757"}, "page": {"2"}},
			Referer: "https://f.mnr.gov.cn/",
		})

		require.NoError(t, err)
		assert.Equal(t, "<html><body>自然资源部</body></html>", string(body))
		require.NotNil(t, got)
		assert.Equal(t, "agent-a", got.Header.Get("User-Agent"))
		assert.Equal(t, lawdochttp.AcceptLanguage, got.Header.Get("Accept-Language"))
		assert.Equal(t, "https://f.mnr.gov.cn/", got.Header.Get("Referer"))
		assert.Equal(t, "174757", got.URL.Query().Get("channelid"))
		assert.Equal(t, "2", got.URL.Query().Get("page"))
	})

	t.Run("sends POST parameters as a form", func(t *testing.T) {
		t.Parallel()

		var form url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			form = r.PostForm
			_, _ = w.Write([]byte("{}"))
		}))
		defer server.Close()

		s := newSession(t)

		_, err := s.Fetch(context.Background(), &lawdoc.Request{
			Method: http.MethodPost,
			URL:    server.URL,
			Params: url.Values{"searchword": {"土地"}},
		})

		require.NoError(t, err)
		assert.Equal(t, "土地", form.Get("searchword"))
	})

	t.Run("rotates user agents round-robin", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var agents []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			agents = append(agents, r.Header.Get("User-Agent"))
			mu.Unlock()
		}))
		defer server.Close()

		s := newSession(t, lawdochttp.WithUserAgents([]string{"a", "b"}))

		for range 3 {
			_, err := s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL})
			require.NoError(t, err)
		}

		assert.Equal(t, []string{"a", "b", "a"}, agents)
	})

	t.Run("keeps cookies across requests", func(t *testing.T) {
		t.Parallel()

		var second string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/first" {
				http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc123", Path: "/"})
				return
			}
			if c, err := r.Cookie("JSESSIONID"); err == nil {
				second = c.Value
			}
		}))
		defer server.Close()

		s := newSession(t)

		_, err := s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL + "/first"})
		require.NoError(t, err)
		_, err = s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL + "/second"})
		require.NoError(t, err)

		assert.Equal(t, "abc123", second)
	})

	t.Run("decodes GBK pages to UTF-8", func(t *testing.T) {
		t.Parallel()

		encoded, err := simplifiedchinese.GBK.NewEncoder().String("<p>国土空间规划</p>")
		require.NoError(t, err)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=gbk")
			_, _ = w.Write([]byte(encoded))
		}))
		defer server.Close()

		s := newSession(t)

		body, err := s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL})

		require.NoError(t, err)
		assert.Equal(t, "<p>国土空间规划</p>", string(body))
	})

	t.Run("classifies response status codes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			status int
			code   string
		}{
			{http.StatusServiceUnavailable, lawdoc.ETRANSIENT},
			{http.StatusBadGateway, lawdoc.ETRANSIENT},
			{http.StatusRequestTimeout, lawdoc.ETRANSIENT},
			{http.StatusTooManyRequests, lawdoc.ERATELIMIT},
			{http.StatusNotFound, lawdoc.EPERMANENT},
			{http.StatusForbidden, lawdoc.EPERMANENT},
		}

		for _, tt := range tests {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			s := newSession(t)
			_, err := s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL})
			server.Close()

			require.Error(t, err, "status %d", tt.status)
			assert.Equal(t, tt.code, lawdoc.ErrorCode(err), "status %d", tt.status)
		}
	})

	t.Run("classifies timeouts as transient", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		s := newSession(t, lawdochttp.WithTimeout(10*time.Millisecond))

		_, err := s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL})

		require.Error(t, err)
		assert.Equal(t, lawdoc.ETRANSIENT, lawdoc.ErrorCode(err))
	})

	t.Run("waits on the limiter with the request host", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		var domains []string
		limiter := &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				domains = append(domains, domain)
				return nil
			},
		}
		s := newSession(t, lawdochttp.WithLimiter(limiter))

		_, err := s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL})

		require.NoError(t, err)
		u, _ := url.Parse(server.URL)
		assert.Equal(t, []string{u.Host}, domains)
	})

	t.Run("refuses paths disallowed by robots.txt", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/robots.txt" {
				_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		s := newSession(t, lawdochttp.WithRobots(true))

		_, err := s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL + "/private/doc.html"})
		require.Error(t, err)
		assert.Equal(t, lawdoc.EPERMANENT, lawdoc.ErrorCode(err))

		body, err := s.Fetch(context.Background(), &lawdoc.Request{URL: server.URL + "/public/doc.html"})
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
	})
}

func TestSession_Download(t *testing.T) {
	t.Parallel()

	t.Run("streams the file unmodified", func(t *testing.T) {
		t.Parallel()

		payload := []byte{0x25, 0x50, 0x44, 0x46, 0xb9, 0xfa}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(payload)
		}))
		defer server.Close()

		s := newSession(t)
		var buf bytes.Buffer

		n, err := s.Download(context.Background(), server.URL+"/file.pdf", &buf)

		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), n)
		assert.Equal(t, payload, buf.Bytes())
	})
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects an invalid proxy URL", func(t *testing.T) {
		t.Parallel()

		_, err := lawdochttp.NewSession(lawdochttp.WithProxy("::not a url"))

		require.Error(t, err)
		assert.Equal(t, lawdoc.ECONFIG, lawdoc.ErrorCode(err))
	})
}

func TestSessionFactory_NewSession(t *testing.T) {
	t.Parallel()

	t.Run("gives each session its own limiter", func(t *testing.T) {
		t.Parallel()

		var created int
		f := &lawdochttp.SessionFactory{
			NewLimiter: func() lawdoc.DomainLimiter {
				created++
				return &mock.DomainLimiter{WaitFn: func(context.Context, string) error { return nil }}
			},
		}

		a, err := f.NewSession(&lawdoc.SourceConfig{Name: "flfg"})
		require.NoError(t, err)
		b, err := f.NewSession(&lawdoc.SourceConfig{Name: "gi"})
		require.NoError(t, err)

		assert.NotSame(t, a, b)
		assert.Equal(t, 2, created)
	})
}
