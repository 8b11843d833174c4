package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Ensure LoggingLedger implements lawdoc.Ledger.
var _ lawdoc.Ledger = (*LoggingLedger)(nil)

// LoggingLedger wraps a Ledger and logs every mutation.
type LoggingLedger struct {
	next   lawdoc.Ledger
	logger *slog.Logger
}

// NewLoggingLedger creates a new LoggingLedger.
func NewLoggingLedger(next lawdoc.Ledger, logger *slog.Logger) *LoggingLedger {
	return &LoggingLedger{next: next, logger: logger}
}

// IsDone delegates to the wrapped ledger.
func (l *LoggingLedger) IsDone(ctx context.Context, key lawdoc.Key) (bool, error) {
	return l.next.IsDone(ctx, key)
}

// MarkDone delegates to the wrapped ledger and logs the completion.
func (l *LoggingLedger) MarkDone(ctx context.Context, c *lawdoc.Completion) (err error) {
	defer func(begin time.Time) {
		lvl := slog.LevelInfo
		if err != nil {
			lvl = slog.LevelError
		}
		l.logger.Log(ctx, lvl, "document done",
			"key", c.Key.String(),
			"attempts", c.AttemptCount,
			"failed_formats", c.FailedFormats,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.MarkDone(ctx, c)
}

// MarkFailed delegates to the wrapped ledger and logs the failure.
func (l *LoggingLedger) MarkFailed(ctx context.Context, f *lawdoc.Failure) (err error) {
	defer func(begin time.Time) {
		lvl := slog.LevelWarn
		if err != nil {
			lvl = slog.LevelError
		}
		l.logger.Log(ctx, lvl, "document failed",
			"key", f.Stub.Key().String(),
			"attempts", f.AttemptCount,
			"terminal", f.Terminal,
			"last_error", f.LastError,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.MarkFailed(ctx, f)
}

// FindCompletion delegates to the wrapped ledger.
func (l *LoggingLedger) FindCompletion(ctx context.Context, key lawdoc.Key) (*lawdoc.Completion, error) {
	return l.next.FindCompletion(ctx, key)
}

// FailedItems delegates to the wrapped ledger and logs the count.
func (l *LoggingLedger) FailedItems(ctx context.Context, sourceID string) (failures []*lawdoc.Failure, err error) {
	defer func(begin time.Time) {
		l.logger.Log(ctx, level(err), "failed items",
			"source", sourceID,
			"count", len(failures),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.FailedItems(ctx, sourceID)
}

// CompletedIDs delegates to the wrapped ledger.
func (l *LoggingLedger) CompletedIDs(ctx context.Context, sourceID string) ([]string, error) {
	return l.next.CompletedIDs(ctx, sourceID)
}
