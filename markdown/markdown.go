// Package markdown renders document records as retrieval-ready Markdown
// with a YAML front matter header.
package markdown

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/fwojciec/lawdoc"
	"gopkg.in/yaml.v3"
)

// Compile-time interface verification.
var _ lawdoc.Formatter = (*Formatter)(nil)

const delimiter = "---"

// FrontMatter is the header of a Markdown document. Field order is the
// order keys are written in.
type FrontMatter struct {
	Title          string `yaml:"title"`
	DocumentID     string `yaml:"document_id"`
	Source         string `yaml:"source"`
	SourceURL      string `yaml:"source_url"`
	IssuingBody    string `yaml:"issuing_body"`
	PublishDate    string `yaml:"publish_date"`
	EffectiveDate  string `yaml:"effective_date,omitempty"`
	DocumentNumber string `yaml:"document_number"`
	EffectLevel    string `yaml:"effect_level"`
	Validity       string `yaml:"validity,omitempty"`
	Category       string `yaml:"category,omitempty"`
	FetchedAt      string `yaml:"fetched_at"`
}

// NewFrontMatter returns the header for a record.
func NewFrontMatter(rec *lawdoc.DocumentRecord) *FrontMatter {
	fm := &FrontMatter{
		Title:          rec.Title,
		DocumentID:     rec.DocumentID,
		Source:         rec.SourceID,
		SourceURL:      rec.DetailURL,
		IssuingBody:    rec.IssuingBody,
		DocumentNumber: rec.DocumentNumber,
		EffectLevel:    string(rec.EffectLevel),
		Validity:       rec.Validity,
		Category:       rec.Category,
	}
	if rec.PublishDate != nil {
		fm.PublishDate = rec.PublishDate.String()
	}
	if rec.EffectiveDate != nil {
		fm.EffectiveDate = rec.EffectiveDate.String()
	}
	if !rec.FetchTimestamp.IsZero() {
		fm.FetchedAt = rec.FetchTimestamp.UTC().Format(time.RFC3339)
	}
	return fm
}

// Marshal encodes the header with every value double-quoted.
func (fm *FrontMatter) Marshal() ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(fm); err != nil {
		return nil, err
	}
	for i := 1; i < len(node.Content); i += 2 {
		node.Content[i].Style = yaml.DoubleQuotedStyle
	}
	return yaml.Marshal(&node)
}

// ParseFrontMatter splits a Markdown document into its header and body.
// Returns EINVALID if the document does not start with a header.
func ParseFrontMatter(data []byte) (*FrontMatter, []byte, error) {
	open := []byte(delimiter + "\n")
	if !bytes.HasPrefix(data, open) {
		return nil, nil, lawdoc.Errorf(lawdoc.EINVALID, "missing front matter")
	}
	rest := data[len(open):]

	end := bytes.Index(rest, []byte("\n"+delimiter+"\n"))
	if end < 0 {
		return nil, nil, lawdoc.Errorf(lawdoc.EINVALID, "unterminated front matter")
	}

	var fm FrontMatter
	if err := yaml.Unmarshal(rest[:end+1], &fm); err != nil {
		return nil, nil, lawdoc.Errorf(lawdoc.EINVALID, "invalid front matter: %v", err)
	}
	body := bytes.TrimLeft(rest[end+len(delimiter)+2:], "\n")
	return &fm, body, nil
}

// Formatter implements lawdoc.Formatter for Markdown output.
type Formatter struct {
	conv lawdoc.Converter
}

// NewFormatter creates a Formatter that converts body HTML with conv.
func NewFormatter(conv lawdoc.Converter) *Formatter {
	return &Formatter{conv: conv}
}

// Format renders the record. Conversion problems in the body fall back to
// the plain body text, so only header encoding can fail.
func (f *Formatter) Format(rec *lawdoc.DocumentRecord) ([]byte, error) {
	header, err := NewFrontMatter(rec).Marshal()
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.ECONVERSION, "failed to encode front matter: %v", err)
	}

	var b bytes.Buffer
	b.WriteString(delimiter + "\n")
	b.Write(header)
	b.WriteString(delimiter + "\n\n")

	fmt.Fprintf(&b, "# %s\n\n", rec.Title)

	b.WriteString("## 基本信息\n\n")
	for _, field := range rec.Fields() {
		fmt.Fprintf(&b, "- **%s**: %s\n", field.Label, field.Value)
	}
	if rec.DetailURL != "" {
		fmt.Fprintf(&b, "- **来源链接**: [查看原文](%s)\n", rec.DetailURL)
	}
	b.WriteString("\n" + delimiter + "\n\n")

	b.WriteString("## 正文内容\n\n")
	if body := lawdoc.BodyMarkdown(f.conv, rec); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "> **注意**: %s\n>\n> 请访问[来源链接](#基本信息)查看完整文档内容。\n", lawdoc.NoticeBodyUnavailable)
	}

	if len(rec.Attachments) > 0 {
		b.WriteString("\n## 附件\n\n")
		for _, a := range rec.Attachments {
			fmt.Fprintf(&b, "- [%s](%s)\n", escapeLinkText(a.Filename), attachmentLink(a))
		}
	}

	return b.Bytes(), nil
}

// attachmentLink points at the downloaded copy when there is one. Markdown
// files live one directory below the output root.
func attachmentLink(a lawdoc.Attachment) string {
	if a.LocalPath != "" {
		return path.Join("..", a.LocalPath)
	}
	return a.URL
}

var linkTextEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

func escapeLinkText(s string) string {
	return linkTextEscaper.Replace(s)
}
