package mock

import (
	"context"

	"github.com/fwojciec/lawdoc"
)

var _ lawdoc.Ledger = (*Ledger)(nil)

// Ledger is a mock implementation of lawdoc.Ledger.
type Ledger struct {
	IsDoneFn         func(ctx context.Context, key lawdoc.Key) (bool, error)
	MarkDoneFn       func(ctx context.Context, c *lawdoc.Completion) error
	MarkFailedFn     func(ctx context.Context, f *lawdoc.Failure) error
	FindCompletionFn func(ctx context.Context, key lawdoc.Key) (*lawdoc.Completion, error)
	FailedItemsFn    func(ctx context.Context, sourceID string) ([]*lawdoc.Failure, error)
	CompletedIDsFn   func(ctx context.Context, sourceID string) ([]string, error)
}

func (l *Ledger) IsDone(ctx context.Context, key lawdoc.Key) (bool, error) {
	return l.IsDoneFn(ctx, key)
}

func (l *Ledger) MarkDone(ctx context.Context, c *lawdoc.Completion) error {
	return l.MarkDoneFn(ctx, c)
}

func (l *Ledger) MarkFailed(ctx context.Context, f *lawdoc.Failure) error {
	return l.MarkFailedFn(ctx, f)
}

func (l *Ledger) FindCompletion(ctx context.Context, key lawdoc.Key) (*lawdoc.Completion, error) {
	return l.FindCompletionFn(ctx, key)
}

func (l *Ledger) FailedItems(ctx context.Context, sourceID string) ([]*lawdoc.Failure, error) {
	return l.FailedItemsFn(ctx, sourceID)
}

func (l *Ledger) CompletedIDs(ctx context.Context, sourceID string) ([]string, error) {
	return l.CompletedIDsFn(ctx, sourceID)
}

var _ lawdoc.RunService = (*RunService)(nil)

// RunService is a mock implementation of lawdoc.RunService.
type RunService struct {
	CreateRunFn func(ctx context.Context, run *lawdoc.Run) error
	FinishRunFn func(ctx context.Context, run *lawdoc.Run) error
	FindRunsFn  func(ctx context.Context, limit int) ([]*lawdoc.Run, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *lawdoc.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FinishRun(ctx context.Context, run *lawdoc.Run) error {
	return s.FinishRunFn(ctx, run)
}

func (s *RunService) FindRuns(ctx context.Context, limit int) ([]*lawdoc.Run, error) {
	return s.FindRunsFn(ctx, limit)
}
