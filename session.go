package lawdoc

import (
	"context"
	"io"
)

// Downloader streams a file to w.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Session issues requests on behalf of one source. It owns the source's
// cookie jar, identification headers and inter-request delay.
//
// Fetch errors are classified: ETRANSIENT for timeouts, connection resets
// and 5xx responses, ERATELIMIT for 429, and EPERMANENT for other 4xx.
type Session interface {
	Downloader

	// Fetch issues the request and returns the response body decoded to UTF-8.
	Fetch(ctx context.Context, req *Request) ([]byte, error)

	// Close releases resources held by the session.
	Close() error
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// SessionFactory opens a session for a source. Sessions are not shared
// between sources.
type SessionFactory interface {
	NewSession(src *SourceConfig) (Session, error)
}
