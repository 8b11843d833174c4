package mock

import (
	"context"

	"github.com/fwojciec/lawdoc"
)

var _ lawdoc.RecordWriter = (*RecordWriter)(nil)

// RecordWriter is a mock implementation of lawdoc.RecordWriter.
type RecordWriter struct {
	WriteRecordFn func(ctx context.Context, rec *lawdoc.DocumentRecord, dl lawdoc.Downloader) (*lawdoc.WriteResult, error)
}

func (w *RecordWriter) WriteRecord(ctx context.Context, rec *lawdoc.DocumentRecord, dl lawdoc.Downloader) (*lawdoc.WriteResult, error) {
	return w.WriteRecordFn(ctx, rec, dl)
}

var _ lawdoc.Formatter = (*Formatter)(nil)

// Formatter is a mock implementation of lawdoc.Formatter.
type Formatter struct {
	FormatFn func(rec *lawdoc.DocumentRecord) ([]byte, error)
}

func (f *Formatter) Format(rec *lawdoc.DocumentRecord) ([]byte, error) {
	return f.FormatFn(rec)
}
