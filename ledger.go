package lawdoc

import (
	"context"
	"time"
)

// Completion records a document whose outputs were written.
type Completion struct {
	Key
	AttemptCount  int       `json:"attempt_count"`
	CompletedAt   time.Time `json:"completed_at"`
	FailedFormats []string  `json:"failed_formats"`
	ContentHash   string    `json:"content_hash"`
}

// Failure records a document whose last attempt failed. The stub is kept
// so the document can be re-targeted without walking list pages again.
type Failure struct {
	Stub         DocumentStub `json:"stub"`
	AttemptCount int          `json:"attempt_count"`
	LastError    string       `json:"last_error"`
	LastAttempt  time.Time    `json:"last_attempt"`
	Terminal     bool         `json:"terminal"`
}

// Ledger persists which documents are done and which have failed, across
// runs. Every mutation is durable when the call returns.
type Ledger interface {
	// IsDone reports whether the document has been completed.
	IsDone(ctx context.Context, key Key) (bool, error)

	// MarkDone records a completed attempt. CompletedAt is set by the
	// ledger; AttemptCount is supplied by the caller and includes failed
	// attempts from earlier runs. Any failure entry for the document is
	// removed.
	MarkDone(ctx context.Context, c *Completion) error

	// MarkFailed records a failed attempt. AttemptCount and LastAttempt are
	// set by the ledger: the count is one more than the count stored for
	// the document, so a document failing in several runs accumulates.
	MarkFailed(ctx context.Context, f *Failure) error

	// FindCompletion returns the completion entry for a document.
	// Returns ENOTFOUND if the document has not been completed.
	FindCompletion(ctx context.Context, key Key) (*Completion, error)

	// FailedItems returns failure entries for a source, or for all sources
	// when sourceID is empty, ordered by last attempt.
	FailedItems(ctx context.Context, sourceID string) ([]*Failure, error)

	// CompletedIDs returns the document IDs completed for a source.
	CompletedIDs(ctx context.Context, sourceID string) ([]string, error)
}

// Mode selects which documents a run targets.
type Mode string

// Run modes.
const (
	ModeFull        Mode = "full"
	ModeTest        Mode = "test"
	ModeRetryFailed Mode = "retry_failed"
)

// Validate returns ECONFIG for unknown modes.
func (m Mode) Validate() error {
	switch m {
	case ModeFull, ModeTest, ModeRetryFailed:
		return nil
	}
	return Errorf(ECONFIG, "unknown run mode %q", string(m))
}

// Run is one invocation of the pipeline.
type Run struct {
	ID         string    `json:"id"`
	Mode       Mode      `json:"mode"`
	Sources    []string  `json:"sources"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Err        string    `json:"err"`
}

// RunService keeps the history of pipeline runs.
type RunService interface {
	// CreateRun assigns an ID and start time to the run and stores it.
	CreateRun(ctx context.Context, run *Run) error

	// FinishRun stores the run's outcome and finish time.
	// Returns ENOTFOUND if the run does not exist.
	FinishRun(ctx context.Context, run *Run) error

	// FindRuns returns the most recent runs first. A limit of zero
	// returns all runs.
	FindRuns(ctx context.Context, limit int) ([]*Run, error)
}
