package lawdoc

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Key identifies a document across runs. Document ids are only unique
// within a source, so both parts are required.
type Key struct {
	SourceID   string
	DocumentID string
}

// String returns the key as "source/document".
func (k Key) String() string {
	return k.SourceID + "/" + k.DocumentID
}

// DocumentStub is the minimal identity of a document discovered on a list
// page, before its detail page has been fetched.
type DocumentStub struct {
	SourceID      string `json:"source_id"`
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	DetailURL     string `json:"detail_url"`
	ListPageIndex int    `json:"list_page_index"`

	// Provisional metadata shown on the list page. Detail extraction
	// takes precedence when both are present.
	DocumentNumber string `json:"document_number,omitempty"`
	IssuingBody    string `json:"issuing_body,omitempty"`
	PublishDate    string `json:"publish_date,omitempty"`
	EffectiveDate  string `json:"effective_date,omitempty"`
	EffectLevel    string `json:"effect_level,omitempty"`
	Validity       string `json:"validity,omitempty"`
	Category       string `json:"category,omitempty"`
	IndexNumber    string `json:"index_number,omitempty"`
}

// Key returns the stub's deduplication key.
func (s *DocumentStub) Key() Key {
	return Key{SourceID: s.SourceID, DocumentID: s.DocumentID}
}

// Validate returns an error if the stub cannot be fetched.
func (s *DocumentStub) Validate() error {
	if s.SourceID == "" {
		return Errorf(EINVALID, "stub source ID required")
	}
	if s.DocumentID == "" {
		return Errorf(EINVALID, "stub document ID required")
	}
	if s.DetailURL == "" {
		return Errorf(EINVALID, "stub detail URL required")
	}
	return nil
}

// Attachment is a file linked from a document's body.
type Attachment struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	LocalPath string `json:"local_path"`
}

// DocumentRecord is a fully extracted document. It is serialized verbatim
// as the JSON output; field names are stable and only ever added to.
type DocumentRecord struct {
	DocumentID     string       `json:"document_id"`
	SourceID       string       `json:"source_id"`
	Title          string       `json:"title"`
	DocumentNumber string       `json:"document_number"`
	IssuingBody    string       `json:"issuing_body"`
	PublishDate    *Date        `json:"publish_date"`
	EffectLevel    EffectLevel  `json:"effect_level"`
	BodyText       string       `json:"body_text"`
	BodyHTMLRaw    string       `json:"body_html_raw"`
	Attachments    []Attachment `json:"attachments"`
	FetchTimestamp time.Time    `json:"fetch_timestamp"`
	Warnings       []string     `json:"extraction_warnings"`

	DetailURL     string `json:"detail_url"`
	BodyHTML      string `json:"body_html"`
	EffectiveDate *Date  `json:"effective_date"`
	Validity      string `json:"validity"`
	Category      string `json:"category"`
	IndexNumber   string `json:"index_number"`
	Origin        string `json:"origin"`
	ContentHash   string `json:"content_hash"`
	AttemptCount  int    `json:"attempt_count"`

	// OutputNumber is the sequence number of the record's Markdown, DOCX
	// and attachment files. It is set by the writer.
	OutputNumber int `json:"output_number"`
}

// Key returns the record's deduplication key.
func (r *DocumentRecord) Key() Key {
	return Key{SourceID: r.SourceID, DocumentID: r.DocumentID}
}

// Validate returns an error if the record is missing its identity.
func (r *DocumentRecord) Validate() error {
	if r.SourceID == "" {
		return Errorf(EINVALID, "record source ID required")
	}
	if r.DocumentID == "" {
		return Errorf(EINVALID, "record document ID required")
	}
	if r.Title == "" {
		return Errorf(EINVALID, "record title required")
	}
	return nil
}

// AddWarning records an extraction warning, keeping the set sorted and
// free of duplicates.
func (r *DocumentRecord) AddWarning(w string) {
	i, found := slices.BinarySearch(r.Warnings, w)
	if found {
		return
	}
	r.Warnings = slices.Insert(r.Warnings, i, w)
}

// HasWarning reports whether w was recorded.
func (r *DocumentRecord) HasWarning(w string) bool {
	_, found := slices.BinarySearch(r.Warnings, w)
	return found
}

// Extraction warnings attached to records.
const (
	WarnPublishDateInvalid   = "publish_date_invalid"
	WarnPublishDateAmbiguous = "publish_date_ambiguous"
	WarnEffectiveDateInvalid = "effective_date_invalid"
	WarnEffectLevelUnknown   = "effect_level_unrecognized"
	WarnBodyEmpty            = "body_empty"
	WarnBodyFallback         = "body_selector_fallback"
	WarnAttachmentDownload   = "attachment_download_failed"
)

// Date is a calendar date without a time of day. It serializes as
// "YYYY-MM-DD".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateLayout is the canonical serialized form of a Date.
const DateLayout = "2006-01-02"

// NewDate returns the date if y-m-d names a real calendar day.
func NewDate(y int, m time.Month, d int) (Date, error) {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != m || t.Day() != d {
		return Date{}, Errorf(EINVALID, "invalid calendar date %04d-%02d-%02d", y, int(m), d)
	}
	return Date{Year: y, Month: m, Day: d}, nil
}

// ParseDate parses a date in DateLayout.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, Errorf(EINVALID, "invalid date %q", s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String returns the date in DateLayout.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// EffectLevel is the legal-force category of a document.
type EffectLevel string

// Known effect levels.
const (
	EffectLevelLaw                 EffectLevel = "法律"
	EffectLevelAdministrativeRule  EffectLevel = "行政法规"
	EffectLevelJudicialInterp      EffectLevel = "司法解释"
	EffectLevelDepartmentalRule    EffectLevel = "部门规章"
	EffectLevelLocalRegulation     EffectLevel = "地方性法规"
	EffectLevelLocalGovernmentRule EffectLevel = "地方政府规章"
	EffectLevelNormative           EffectLevel = "规范性文件"
	EffectLevelOther               EffectLevel = "其他"
)

// effectLevels is checked in order; the first name contained in the raw
// text wins, so local variants precede the national ones.
var effectLevels = []EffectLevel{
	EffectLevelLocalGovernmentRule,
	EffectLevelLocalRegulation,
	EffectLevelAdministrativeRule,
	EffectLevelJudicialInterp,
	EffectLevelDepartmentalRule,
	EffectLevelNormative,
	EffectLevelLaw,
	EffectLevelOther,
}

// ParseEffectLevel maps free text to a known effect level. The second
// return value is false when the text is non-empty but unrecognized, in
// which case EffectLevelOther is returned.
func ParseEffectLevel(raw string) (EffectLevel, bool) {
	if raw == "" {
		return "", true
	}
	for _, level := range effectLevels {
		if strings.Contains(raw, string(level)) {
			return level, true
		}
	}
	return EffectLevelOther, false
}

// Field is one labelled metadata line in rendered documents.
type Field struct {
	Label string
	Value string
}

// Fields returns the metadata lines shown for the record. The issuing body
// and publish date are always present; the rest only when known.
func (r *DocumentRecord) Fields() []Field {
	fields := []Field{
		{Label: "发布机构", Value: r.IssuingBody},
		{Label: "发布日期", Value: r.PublishDate.orEmpty()},
	}
	optional := []Field{
		{Label: "发文字号", Value: r.DocumentNumber},
		{Label: "生效日期", Value: r.EffectiveDate.orEmpty()},
		{Label: "效力级别", Value: string(r.EffectLevel)},
		{Label: "有效性", Value: r.Validity},
		{Label: "分类", Value: r.Category},
		{Label: "索引号", Value: r.IndexNumber},
	}
	for _, f := range optional {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func (d *Date) orEmpty() string {
	if d == nil {
		return ""
	}
	return d.String()
}
