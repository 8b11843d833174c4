package lawdoc

import "context"

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatDOCX     = "docx"
	FormatFiles    = "files"
)

// Formatter renders a record into one output format. Output must be
// byte-identical for identical records.
type Formatter interface {
	Format(rec *DocumentRecord) ([]byte, error)
}

// WriteResult describes the files produced for one record.
type WriteResult struct {
	// Number is the sequence number shared by all of the record's files.
	Number int

	// Paths maps each written format to its path relative to the output root.
	Paths map[string]string

	// FailedFormats lists formats that could not be produced.
	FailedFormats []string
}

// RecordWriter persists a record and its attachments.
type RecordWriter interface {
	// WriteRecord writes every enabled format. Attachments are fetched with
	// dl and their local paths are filled in on rec. A JSON failure fails
	// the whole write; Markdown and DOCX failures are reported through
	// WriteResult.FailedFormats.
	WriteRecord(ctx context.Context, rec *DocumentRecord, dl Downloader) (*WriteResult, error)
}
