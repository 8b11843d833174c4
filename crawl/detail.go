package crawl

import (
	"context"
	"fmt"

	"github.com/fwojciec/lawdoc"
)

// process fetches, extracts and writes one document, retrying failed
// attempts with backoff. Every attempt is recorded in the ledger before
// the next one starts.
//
// The attempt itself runs on a context detached from ctx so that a
// cancellation never interrupts a document halfway; ctx is only consulted
// between attempts.
func (r *sourceRun) process(ctx context.Context, stub *lawdoc.DocumentStub) {
	c := r.crawler
	key := stub.Key()
	prior := r.prior[key]
	work := context.WithoutCancel(ctx)

	for attempt := 1; ; attempt++ {
		ev := r.event(PhaseDetailFetch)
		ev.DocumentID, ev.Title, ev.Attempt = stub.DocumentID, stub.Title, attempt
		r.emit(ev)

		res, retryable, err := r.attempt(work, stub, prior+attempt)
		if err == nil {
			err = c.Ledger.MarkDone(work, &lawdoc.Completion{
				Key:           key,
				AttemptCount:  prior + attempt,
				FailedFormats: res.failedFormats,
				ContentHash:   res.hash,
			})
		}
		if err == nil {
			r.completed.Add(1)
			ev := r.event(PhaseSaved)
			ev.DocumentID, ev.Title, ev.Attempt = stub.DocumentID, res.title, attempt
			r.emit(ev)
			return
		}

		terminal := !retryable || attempt >= c.attempts()
		if merr := c.Ledger.MarkFailed(work, &lawdoc.Failure{
			Stub:      *stub,
			LastError: err.Error(),
			Terminal:  terminal,
		}); merr != nil {
			err = fmt.Errorf("%w (ledger: %v)", err, merr)
		}

		if terminal {
			r.failed.Add(1)
			ev := r.event(PhaseFailedTerminal)
			ev.DocumentID, ev.Title, ev.Attempt, ev.Err = stub.DocumentID, stub.Title, attempt, err
			r.emit(ev)
			return
		}

		ev = r.event(PhaseRetryQueued)
		ev.DocumentID, ev.Title, ev.Attempt, ev.Err = stub.DocumentID, stub.Title, attempt, err
		r.emit(ev)

		if c.sleep(ctx, c.backoff().Delay(attempt, err)) != nil {
			return
		}
	}
}

type attemptResult struct {
	title         string
	hash          string
	failedFormats []string
}

// attempt runs one fetch-extract-write pass. Fetch failures of any kind
// may be retried; a page that cannot be extracted or written will not
// improve on the next attempt unless the error says otherwise.
func (r *sourceRun) attempt(ctx context.Context, stub *lawdoc.DocumentStub, attemptCount int) (*attemptResult, bool, error) {
	req := r.adapter.DetailRequest(stub)
	body, err := r.session.Fetch(ctx, req)
	if err != nil {
		return nil, true, err
	}

	rec, err := r.adapter.ExtractDetail(stub, string(body))
	if err != nil {
		return nil, false, err
	}
	if rec.DetailURL == "" {
		rec.DetailURL = req.FullURL()
	}
	rec.ContentHash = ComputeHash(rec.BodyText)
	rec.AttemptCount = attemptCount
	if err := rec.Validate(); err != nil {
		return nil, false, err
	}

	res, err := r.crawler.Writer.WriteRecord(ctx, rec, r.session)
	if err != nil {
		return nil, lawdoc.IsRetryable(err), err
	}
	return &attemptResult{title: rec.Title, hash: rec.ContentHash, failedFormats: res.FailedFormats}, false, nil
}
