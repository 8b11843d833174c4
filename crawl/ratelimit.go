package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/lawdoc"
	"golang.org/x/time/rate"
)

var _ lawdoc.DomainLimiter = (*DelayLimiter)(nil)

// DelayLimiter spaces requests to the same host at least a fixed delay
// apart. Hosts are limited independently; the first request to a host is
// never delayed.
type DelayLimiter struct {
	mu    sync.Mutex
	hosts map[string]*rate.Limiter
	every rate.Limit
}

// NewDelayLimiter creates a DelayLimiter. A delay of zero or less disables
// limiting.
func NewDelayLimiter(delay time.Duration) *DelayLimiter {
	every := rate.Inf
	if delay > 0 {
		every = rate.Every(delay)
	}
	return &DelayLimiter{
		hosts: make(map[string]*rate.Limiter),
		every: every,
	}
}

// Wait blocks until a request to domain may be issued, or ctx is done.
func (d *DelayLimiter) Wait(ctx context.Context, domain string) error {
	d.mu.Lock()
	l, ok := d.hosts[domain]
	if !ok {
		l = rate.NewLimiter(d.every, 1)
		d.hosts[domain] = l
	}
	d.mu.Unlock()

	return l.Wait(ctx)
}
