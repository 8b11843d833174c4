// Package fs writes document records and their attachments to an output
// directory.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fwojciec/lawdoc"
)

// Output subdirectories, one per format.
const (
	DirJSON     = "json"
	DirMarkdown = "markdown"
	DirDOCX     = "docx"
	DirFiles    = "files"
)

// Ensure Writer implements lawdoc.RecordWriter at compile time.
var _ lawdoc.RecordWriter = (*Writer)(nil)

// Writer writes records under a base directory:
//
//	json/policy_{title}_{source}.json
//	markdown/{number}_{title}.md
//	docx/{number}_{title}.docx
//	files/{number}_{attachment}
//
// The four-digit number is allocated once per document key and continues
// from the highest number already on disk. Writing a key again replaces its
// files in place; the _2, _3 suffixes only separate different keys whose
// names clash.
type Writer struct {
	baseDir  string
	formats  lawdoc.Formats
	markdown lawdoc.Formatter
	docx     lawdoc.Formatter

	mu      sync.Mutex
	scanned bool
	last    int
	outputs map[lawdoc.Key]*output
}

// output tracks the files owned by one document key. mu serializes writes
// of the key.
type output struct {
	mu      sync.Mutex
	number  int
	json    string
	written bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithFormats selects the formats to write. All are enabled by default.
func WithFormats(f lawdoc.Formats) Option {
	return func(w *Writer) {
		w.formats = f
	}
}

// WithMarkdown sets the Markdown formatter. Markdown output is skipped
// without one.
func WithMarkdown(f lawdoc.Formatter) Option {
	return func(w *Writer) {
		w.markdown = f
	}
}

// WithDOCX sets the DOCX formatter. DOCX output is skipped without one.
func WithDOCX(f lawdoc.Formatter) Option {
	return func(w *Writer) {
		w.docx = f
	}
}

// NewWriter creates a new Writer that writes to the given base directory.
func NewWriter(baseDir string, opts ...Option) *Writer {
	w := &Writer{
		baseDir: baseDir,
		formats: lawdoc.Formats{JSON: true, Markdown: true, DOCX: true, Files: true},
		outputs: make(map[lawdoc.Key]*output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteRecord writes the record's attachments, then its JSON, Markdown and
// DOCX forms. Attachments go first so their local paths appear in the
// other outputs. Files left by an earlier write of the same key are
// replaced.
func (w *Writer) WriteRecord(ctx context.Context, rec *lawdoc.DocumentRecord, dl lawdoc.Downloader) (*lawdoc.WriteResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	o, err := w.output(rec.Key())
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	n := o.number
	if o.written {
		if err := w.removeNumbered(n); err != nil {
			return nil, err
		}
	}
	o.written = true
	rec.OutputNumber = n

	res := &lawdoc.WriteResult{Number: n, Paths: make(map[string]string)}
	title := TitleName(rec)

	if w.formats.Files && dl != nil {
		w.downloadAttachments(ctx, rec, n, dl)
	}

	if w.formats.JSON {
		data, err := MarshalRecord(rec)
		if err != nil {
			return nil, lawdoc.Errorf(lawdoc.ECONVERSION, "failed to encode record: %v", err)
		}
		name, err := w.writeJSON(o, "policy_"+title+"_"+SanitizeName(rec.SourceID)+".json", data)
		if err != nil {
			return nil, err
		}
		res.Paths[lawdoc.FormatJSON] = path.Join(DirJSON, name)
	}

	for _, out := range []struct {
		format string
		dir    string
		ext    string
		f      lawdoc.Formatter
	}{
		{format: lawdoc.FormatMarkdown, dir: DirMarkdown, ext: ".md", f: w.markdown},
		{format: lawdoc.FormatDOCX, dir: DirDOCX, ext: ".docx", f: w.docx},
	} {
		if !w.formats.Enabled(out.format) || out.f == nil {
			continue
		}
		data, err := out.f.Format(rec)
		if err == nil {
			var name string
			if name, err = createFile(w.dir(out.dir), numbered(n, title)+out.ext, bytesFill(data)); err == nil {
				res.Paths[out.format] = path.Join(out.dir, name)
				continue
			}
		}
		res.FailedFormats = append(res.FailedFormats, out.format)
	}

	return res, nil
}

// writeJSON replaces the key's JSON file when its name still fits the
// record's title, and otherwise claims a new name and removes the old file.
func (w *Writer) writeJSON(o *output, want string, data []byte) (string, error) {
	dir := w.dir(DirJSON)
	if o.json != "" && isVariant(o.json, want) {
		if err := replaceFile(dir, o.json, bytesFill(data)); err != nil {
			return "", err
		}
		return o.json, nil
	}

	name, err := createFile(dir, want, bytesFill(data))
	if err != nil {
		return "", err
	}
	if o.json != "" {
		os.Remove(filepath.Join(dir, o.json))
	}
	o.json = name
	return name, nil
}

// downloadAttachments stores each attachment under files/ and records its
// local path. Failed downloads leave the path empty and add a warning.
func (w *Writer) downloadAttachments(ctx context.Context, rec *lawdoc.DocumentRecord, n int, dl lawdoc.Downloader) {
	for i := range rec.Attachments {
		a := &rec.Attachments[i]
		if a.URL == "" {
			continue
		}
		name, err := createFile(w.dir(DirFiles), numbered(n, AttachmentName(a)), func(f io.Writer) error {
			_, err := dl.Download(ctx, a.URL, f)
			return err
		})
		if err != nil {
			rec.AddWarning(lawdoc.WarnAttachmentDownload)
			continue
		}
		a.LocalPath = path.Join(DirFiles, name)
	}
}

// removeNumbered deletes the numbered files carrying n.
func (w *Writer) removeNumbered(n int) error {
	for _, sub := range numberedDirs {
		entries, err := os.ReadDir(w.dir(sub))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		for _, e := range entries {
			if m, ok := parseNumber(e.Name()); ok && m == n {
				if err := os.Remove(filepath.Join(w.dir(sub), e.Name())); err != nil && !os.IsNotExist(err) {
					return err
				}
			}
		}
	}
	return nil
}

func (w *Writer) dir(sub string) string {
	return filepath.Join(w.baseDir, sub)
}

var numberedDirs = []string{DirMarkdown, DirDOCX, DirFiles}

// output returns the files owned by key, allocating the next sequence
// number for a key not seen before. The first call scans the output
// directories.
func (w *Writer) output(key lawdoc.Key) (*output, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.scanned {
		if err := w.scan(); err != nil {
			return nil, err
		}
		w.scanned = true
	}

	o, ok := w.outputs[key]
	if !ok {
		o = &output{}
		w.outputs[key] = o
	}
	if o.number == 0 {
		w.last++
		o.number = w.last
	}
	return o, nil
}

// scan finds the highest number on disk and the keys of existing JSON
// files. Unreadable JSON files are ignored.
func (w *Writer) scan() error {
	for _, sub := range numberedDirs {
		entries, err := os.ReadDir(w.dir(sub))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		for _, e := range entries {
			if n, ok := parseNumber(e.Name()); ok && n > w.last {
				w.last = n
			}
		}
	}

	entries, err := os.ReadDir(w.dir(DirJSON))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(w.dir(DirJSON), e.Name()))
		if err != nil {
			continue
		}
		var head struct {
			SourceID     string `json:"source_id"`
			DocumentID   string `json:"document_id"`
			OutputNumber int    `json:"output_number"`
		}
		if json.Unmarshal(data, &head) != nil || head.SourceID == "" || head.DocumentID == "" {
			continue
		}
		key := lawdoc.Key{SourceID: head.SourceID, DocumentID: head.DocumentID}
		if _, ok := w.outputs[key]; ok {
			continue
		}
		w.outputs[key] = &output{number: head.OutputNumber, json: e.Name(), written: head.OutputNumber > 0}
		if head.OutputNumber > w.last {
			w.last = head.OutputNumber
		}
	}
	return nil
}

// MarshalRecord encodes a record as indented JSON without HTML escaping.
func MarshalRecord(rec *lawdoc.DocumentRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
