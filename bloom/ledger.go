// Package bloom provides a negative-lookup cache for the crawl ledger
// using Bloom filters.
package bloom

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/lawdoc"
)

// Compile-time interface verification.
var _ lawdoc.Ledger = (*CachedLedger)(nil)

// Defaults for the filter behind a CachedLedger.
const (
	DefaultExpectedKeys = 100_000
	DefaultFPRate       = 0.001
)

// CachedLedger answers IsDone from a Bloom filter of completed keys and
// only consults the wrapped ledger when the filter reports a possible hit.
// The filter for a source is loaded from CompletedIDs on first use.
type CachedLedger struct {
	lawdoc.Ledger

	expected uint
	fpRate   float64

	mu     sync.Mutex
	loaded map[string]bool
	filter *bloom.BloomFilter
}

// Option configures a CachedLedger.
type Option func(*CachedLedger)

// WithEstimates sizes the filter for n keys at the given false positive rate.
func WithEstimates(n uint, fpRate float64) Option {
	return func(l *CachedLedger) {
		l.expected = n
		l.fpRate = fpRate
	}
}

// NewCachedLedger wraps next with a Bloom filter cache.
func NewCachedLedger(next lawdoc.Ledger, opts ...Option) *CachedLedger {
	l := &CachedLedger{
		Ledger:   next,
		expected: DefaultExpectedKeys,
		fpRate:   DefaultFPRate,
		loaded:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.filter = bloom.NewWithEstimates(l.expected, l.fpRate)
	return l
}

// IsDone reports whether the document has been completed.
func (l *CachedLedger) IsDone(ctx context.Context, key lawdoc.Key) (bool, error) {
	if err := l.load(ctx, key.SourceID); err != nil {
		return false, err
	}

	l.mu.Lock()
	maybe := l.filter.TestString(key.String())
	l.mu.Unlock()

	if !maybe {
		return false, nil
	}
	return l.Ledger.IsDone(ctx, key)
}

// MarkDone records the completion and adds the key to the filter.
func (l *CachedLedger) MarkDone(ctx context.Context, c *lawdoc.Completion) error {
	if err := l.Ledger.MarkDone(ctx, c); err != nil {
		return err
	}

	l.mu.Lock()
	l.filter.AddString(c.Key.String())
	l.mu.Unlock()
	return nil
}

// load fills the filter with the source's completed keys once.
func (l *CachedLedger) load(ctx context.Context, sourceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded[sourceID] {
		return nil
	}

	ids, err := l.Ledger.CompletedIDs(ctx, sourceID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		l.filter.AddString(lawdoc.Key{SourceID: sourceID, DocumentID: id}.String())
	}
	l.loaded[sourceID] = true
	return nil
}
