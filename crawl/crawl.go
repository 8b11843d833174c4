// Package crawl orchestrates crawling of regulatory document portals.
// Each source is listed page by page while a bounded pool of workers
// fetches, extracts and writes the documents it discovers.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/lawdoc"
	"golang.org/x/sync/errgroup"
)

// Crawler orchestrates the crawling of one or more sources.
type Crawler struct {
	Adapters lawdoc.AdapterRegistry
	Sessions lawdoc.SessionFactory
	Ledger   lawdoc.Ledger
	Writer   lawdoc.RecordWriter

	// Runs, if set, records the history of runs.
	Runs lawdoc.RunService

	// Concurrency is the number of detail workers per source.
	Concurrency int

	// MaxAttempts bounds the attempts per document and per list page.
	MaxAttempts int

	RetryDelay     time.Duration
	RateLimitDelay time.Duration
	MaxEmptyPages  int

	// Force re-crawls documents the ledger marks as done.
	Force bool

	// Sleep waits between attempts. Defaults to Sleep.
	Sleep SleepFunc
}

// NewCrawler returns a Crawler with the request policy from cfg.
func NewCrawler(cfg *lawdoc.Config) *Crawler {
	return &Crawler{
		Concurrency:    cfg.WorkerConcurrency,
		MaxAttempts:    cfg.MaxAttempts,
		RetryDelay:     cfg.RetryDelay,
		RateLimitDelay: cfg.RateLimitDelay,
		MaxEmptyPages:  cfg.MaxEmptyPages,
	}
}

// Result holds the outcome of a run.
type Result struct {
	Completed int
	Failed    int
	Skipped   int
}

// Phase is a step in the life of a source or of one of its documents.
type Phase string

// Source phases run PENDING, LISTING, DETAIL_FETCH, DONE. A document in
// DETAIL_FETCH either ends SAVED or passes through RETRY_QUEUED until it is
// saved or its attempts are used up in FAILED_TERMINAL.
const (
	PhasePending        Phase = "PENDING"
	PhaseListing        Phase = "LISTING"
	PhaseDetailFetch    Phase = "DETAIL_FETCH"
	PhaseRetryQueued    Phase = "RETRY_QUEUED"
	PhaseSaved          Phase = "SAVED"
	PhaseFailedTerminal Phase = "FAILED_TERMINAL"
	PhaseDone           Phase = "DONE"
)

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Source    string
	Phase     Phase
	Completed int
	Failed    int
	Total     int

	// DocumentID and Title are set for document events.
	DocumentID string
	Title      string

	// Attempt is the document's attempt number within the run.
	Attempt int

	// Err is the last error seen, if any.
	Err error
}

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// Run crawls the sources in the given mode and returns the totals. Sources
// run concurrently; a source that cannot be crawled does not stop the
// others, and its error is joined into the returned error. Per-document
// failures are recorded in the ledger and never returned.
//
// All sources are checked before any request is issued: an invalid or
// repeated source or an unknown adapter fails the run with ECONFIG.
//
// When ctx is canceled, documents in flight are finished and no new ones
// are started. Run then returns the context's error.
//
// The progress callback, if provided, is never called concurrently.
func (c *Crawler) Run(ctx context.Context, sources []lawdoc.SourceConfig, mode lawdoc.Mode, progress ProgressFunc) (*Result, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, lawdoc.Errorf(lawdoc.ECONFIG, "no sources to crawl")
	}

	runs := make([]*sourceRun, len(sources))
	seen := make(map[string]bool, len(sources))
	for i := range sources {
		src := &sources[i]
		if err := src.Validate(); err != nil {
			return nil, err
		}
		if seen[src.Name] {
			return nil, lawdoc.Errorf(lawdoc.ECONFIG, "duplicate source %q", src.Name)
		}
		seen[src.Name] = true
		adapter, err := c.Adapters.Adapter(src)
		if err != nil {
			return nil, err
		}
		runs[i] = &sourceRun{crawler: c, src: src, adapter: adapter, mode: mode}
	}

	var mu sync.Mutex
	emit := func(ev ProgressEvent) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		progress(ev)
	}

	run := &lawdoc.Run{Mode: mode}
	for _, s := range sources {
		run.Sources = append(run.Sources, s.Name)
	}
	if c.Runs != nil {
		if err := c.Runs.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	var g errgroup.Group
	errs := make([]error, len(runs))
	for i, r := range runs {
		r.emit = emit
		emit(ProgressEvent{Source: r.src.Name, Phase: PhasePending})
		g.Go(func() error {
			errs[i] = r.crawl(ctx)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{}
	for _, r := range runs {
		result.Completed += int(r.completed.Load())
		result.Failed += int(r.failed.Load())
		result.Skipped += int(r.skipped.Load())
	}

	err := errors.Join(errs...)
	if ctx.Err() != nil {
		err = ctx.Err()
	}

	if c.Runs != nil {
		run.Completed = result.Completed
		run.Failed = result.Failed
		if err != nil {
			run.Err = err.Error()
		}
		if ferr := c.Runs.FinishRun(context.WithoutCancel(ctx), run); ferr != nil && err == nil {
			err = fmt.Errorf("finish run: %w", ferr)
		}
	}
	return result, err
}

// Stream runs the crawl in the background. Progress events are delivered
// on the first channel, which is closed when the run ends; the run's
// outcome is then sent on the second channel. The caller must drain the
// events channel.
func (c *Crawler) Stream(ctx context.Context, sources []lawdoc.SourceConfig, mode lawdoc.Mode) (<-chan ProgressEvent, <-chan error) {
	events := make(chan ProgressEvent, 64)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		_, err := c.Run(ctx, sources, mode, func(ev ProgressEvent) {
			events <- ev
		})
		close(events)
		errc <- err
	}()
	return events, errc
}

func (c *Crawler) attempts() int {
	if c.MaxAttempts <= 0 {
		return lawdoc.DefaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *Crawler) concurrency() int {
	if c.Concurrency <= 0 {
		return lawdoc.DefaultWorkerConcurrency
	}
	return c.Concurrency
}

func (c *Crawler) backoff() Backoff {
	return Backoff{RetryDelay: c.RetryDelay, RateLimitDelay: c.RateLimitDelay}
}

func (c *Crawler) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// sourceRun is the state of one source within a run. Nothing in it is
// shared with other sources.
type sourceRun struct {
	crawler *Crawler
	src     *lawdoc.SourceConfig
	adapter lawdoc.Adapter
	session lawdoc.Session
	mode    lawdoc.Mode
	emit    ProgressFunc

	// prior holds attempt counts of earlier runs for failed documents.
	prior map[lawdoc.Key]int

	total     atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

func (r *sourceRun) event(phase Phase) ProgressEvent {
	return ProgressEvent{
		Source:    r.src.Name,
		Phase:     phase,
		Completed: int(r.completed.Load()),
		Failed:    int(r.failed.Load()),
		Total:     int(r.total.Load()),
	}
}

// crawl lists the source and drains the discovered stubs through the
// worker pool.
func (r *sourceRun) crawl(ctx context.Context) (err error) {
	defer func() {
		ev := r.event(PhaseDone)
		ev.Err = err
		r.emit(ev)
	}()

	c := r.crawler
	failures, err := c.Ledger.FailedItems(ctx, r.src.Name)
	if err != nil {
		return fmt.Errorf("source %s: %w", r.src.Name, err)
	}
	r.prior = make(map[lawdoc.Key]int, len(failures))
	for _, f := range failures {
		r.prior[f.Stub.Key()] = f.AttemptCount
	}

	r.session, err = c.Sessions.NewSession(r.src)
	if err != nil {
		return fmt.Errorf("source %s: %w", r.src.Name, err)
	}
	defer func() {
		if cerr := r.session.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	queue := make(chan *lawdoc.DocumentStub, c.concurrency())

	var g errgroup.Group
	for range c.concurrency() {
		g.Go(func() error {
			for stub := range queue {
				if ctx.Err() != nil {
					continue
				}
				r.process(ctx, stub)
			}
			return nil
		})
	}

	enqueue := func(stub *lawdoc.DocumentStub) error {
		r.total.Add(1)
		select {
		case queue <- stub:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	switch r.mode {
	case lawdoc.ModeRetryFailed:
		err = r.enqueueFailures(failures, enqueue)
	case lawdoc.ModeTest:
		err = r.list(ctx, func(stub *lawdoc.DocumentStub) error {
			if err := enqueue(stub); err != nil {
				return err
			}
			return errStop
		})
	default:
		err = r.list(ctx, enqueue)
	}
	close(queue)
	_ = g.Wait()

	if err != nil {
		return fmt.Errorf("source %s: %w", r.src.Name, err)
	}
	return ctx.Err()
}

// list walks the source's list pages.
func (r *sourceRun) list(ctx context.Context, fn func(*lawdoc.DocumentStub) error) error {
	c := r.crawler
	r.emit(r.event(PhaseListing))

	t := &Traverser{
		Source:        r.src,
		Adapter:       r.adapter,
		Ledger:        c.Ledger,
		MaxEmptyPages: c.MaxEmptyPages,
		Force:         c.Force,
		Fetch: func(ctx context.Context, req *lawdoc.Request) ([]byte, error) {
			return FetchWithRetry(ctx, req, r.session.Fetch, c.attempts(), c.backoff(), c.sleep, nil)
		},
		OnPage: func(_, _ int) {
			r.emit(r.event(PhaseListing))
		},
	}
	stats, err := t.Walk(ctx, fn)
	r.skipped.Add(int64(stats.Skipped))
	return err
}

// enqueueFailures re-targets the ledger's failed documents without
// listing.
func (r *sourceRun) enqueueFailures(failures []*lawdoc.Failure, fn func(*lawdoc.DocumentStub) error) error {
	for _, f := range failures {
		stub := f.Stub
		if err := fn(&stub); err != nil {
			return err
		}
	}
	return nil
}
