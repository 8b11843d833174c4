package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Ensure LoggingWriter implements lawdoc.RecordWriter.
var _ lawdoc.RecordWriter = (*LoggingWriter)(nil)

// LoggingWriter wraps a RecordWriter with logging.
type LoggingWriter struct {
	next   lawdoc.RecordWriter
	logger *slog.Logger
}

// NewLoggingWriter creates a new LoggingWriter.
func NewLoggingWriter(next lawdoc.RecordWriter, logger *slog.Logger) *LoggingWriter {
	return &LoggingWriter{next: next, logger: logger}
}

// WriteRecord delegates to the wrapped writer and logs the files written.
func (w *LoggingWriter) WriteRecord(ctx context.Context, rec *lawdoc.DocumentRecord, dl lawdoc.Downloader) (res *lawdoc.WriteResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"key", rec.Key().String(),
			"title", rec.Title,
			"duration", time.Since(begin),
		}
		if res != nil {
			attrs = append(attrs, "number", res.Number, "files", len(res.Paths))
			if len(res.FailedFormats) > 0 {
				attrs = append(attrs, "failed_formats", res.FailedFormats)
			}
		}
		if len(rec.Warnings) > 0 {
			attrs = append(attrs, "warnings", rec.Warnings)
		}
		attrs = append(attrs, "err", err)

		lvl := slog.LevelDebug
		if err != nil || (res != nil && len(res.FailedFormats) > 0) {
			lvl = slog.LevelWarn
		}
		w.logger.Log(ctx, lvl, "write record", attrs...)
	}(time.Now())
	return w.next.WriteRecord(ctx, rec, dl)
}
