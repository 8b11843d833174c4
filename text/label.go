package text

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field is a metadata field printed as a label/value pair.
type Field string

// Recognized fields.
const (
	FieldTitle          Field = "title"
	FieldIssuingBody    Field = "issuing_body"
	FieldDocumentNumber Field = "document_number"
	FieldPublishDate    Field = "publish_date"
	FieldEffectiveDate  Field = "effective_date"
	FieldEffectLevel    Field = "effect_level"
	FieldValidity       Field = "validity"
	FieldIndexNumber    Field = "index_number"
	FieldCategory       Field = "category"
	FieldOrigin         Field = "origin"
)

// DefaultLabels maps the labels used by the portals to fields.
var DefaultLabels = map[string]Field{
	"标题":   FieldTitle,
	"名称":   FieldTitle,
	"发布机构": FieldIssuingBody,
	"发文机关": FieldIssuingBody,
	"发布单位": FieldIssuingBody,
	"制定机关": FieldIssuingBody,
	"发文字号": FieldDocumentNumber,
	"文号":   FieldDocumentNumber,
	"发布日期": FieldPublishDate,
	"成文日期": FieldPublishDate,
	"成文时间": FieldPublishDate,
	"生成日期": FieldPublishDate,
	"公布日期": FieldPublishDate,
	"发布时间": FieldPublishDate,
	"实施日期": FieldEffectiveDate,
	"生效日期": FieldEffectiveDate,
	"施行日期": FieldEffectiveDate,
	"效力级别": FieldEffectLevel,
	"效力等级": FieldEffectLevel,
	"时效性":  FieldValidity,
	"有效性":  FieldValidity,
	"索引号":  FieldIndexNumber,
	"主题分类": FieldCategory,
	"分类":   FieldCategory,
	"来源":   FieldOrigin,
}

// LabelWords returns the labels sorted by length, longest first. They are
// the default words repaired by a Desplicer.
func LabelWords(labels map[string]Field) []string {
	words := make([]string, 0, len(labels))
	for l := range labels {
		words = append(words, l)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return words
}

// Match is one label/value pair found in text.
type Match struct {
	Field Field
	Label string
	Value string
	Line  int
}

// Scanner finds label/value pairs line by line. A value is taken from the
// same segment ("发布日期: 2024-03-01"), from the next tab-separated segment
// of the same line, or from the following line, and from nowhere else.
// Blank lines are ignored, so the following line is the next one with
// text. A segment holding several "label: value" pairs separated by spaces
// is split before each label.
type Scanner struct {
	labels map[string]Field
}

// NewScanner returns a Scanner for the given label set.
func NewScanner(labels map[string]Field) *Scanner {
	return &Scanner{labels: labels}
}

type row struct {
	line int
	segs []string
}

// Scan returns every match in document order. Input should already be
// normalized; segments are separated by tabs and rows by newlines.
func (s *Scanner) Scan(text string) []Match {
	var rows []row
	for i, line := range strings.Split(text, "\n") {
		if segs := s.segments(line); len(segs) > 0 {
			rows = append(rows, row{line: i, segs: segs})
		}
	}

	var matches []Match
	for i := 0; i < len(rows); i++ {
		line, segs := rows[i].line, rows[i].segs
		for j := 0; j < len(segs); j++ {
			label, field, value, ok := s.parseSegment(segs[j])
			if !ok {
				continue
			}
			if value == "" {
				switch {
				case j+1 < len(segs):
					if _, _, _, isLabel := s.parseSegment(segs[j+1]); !isLabel {
						value = segs[j+1]
						j++
					}
				case i+1 < len(rows):
					next := rows[i+1].segs
					if len(next) == 1 {
						if _, _, _, isLabel := s.parseSegment(next[0]); !isLabel {
							value = next[0]
							i++
						}
					}
				}
			}
			if value == "" {
				continue
			}
			matches = append(matches, Match{Field: field, Label: label, Value: value, Line: line})
		}
	}
	return matches
}

// Fields collects matches by field, keeping document order.
func (s *Scanner) Fields(text string) map[Field][]string {
	out := make(map[Field][]string)
	for _, m := range s.Scan(text) {
		out[m.Field] = append(out[m.Field], m.Value)
	}
	return out
}

// IsLabel reports whether s, ignoring whitespace and a trailing colon, is a
// known label.
func (s *Scanner) IsLabel(seg string) bool {
	_, ok := s.labels[strings.TrimSuffix(Compact(seg), ":")]
	return ok
}

// parseSegment recognizes "label", "label:", "label: value" and
// "label value". The value is empty when the segment holds only the label.
func (s *Scanner) parseSegment(seg string) (label string, field Field, value string, ok bool) {
	if head, tail, hasColon := strings.Cut(seg, ":"); hasColon {
		label = Compact(head)
		if field, ok = s.labels[label]; ok {
			return label, field, strings.TrimSpace(tail), true
		}
	}
	label = Compact(seg)
	if field, ok = s.labels[label]; ok {
		return label, field, "", true
	}
	head, tail, hasSpace := strings.Cut(seg, " ")
	if !hasSpace {
		return "", "", "", false
	}
	label = head
	if field, ok = s.labels[label]; ok {
		return label, field, strings.TrimSpace(tail), true
	}
	return "", "", "", false
}

// segments splits a line at tabs, then splits each cell before every
// "label:" that follows a space.
func (s *Scanner) segments(line string) []string {
	var out []string
	for _, cell := range strings.Split(line, "\t") {
		for _, seg := range s.splitLabels(cell) {
			if seg = strings.TrimSpace(seg); seg != "" {
				out = append(out, seg)
			}
		}
	}
	return out
}

func (s *Scanner) splitLabels(cell string) []string {
	var out []string
	start := 0
	for i := range cell {
		if i == 0 {
			continue
		}
		prev, _ := utf8.DecodeLastRuneInString(cell[:i])
		if !unicode.IsSpace(prev) || !s.labelAt(cell[i:]) {
			continue
		}
		out = append(out, cell[start:i])
		start = i
	}
	return append(out, cell[start:])
}

// labelAt reports whether rest starts with a known label and a colon.
func (s *Scanner) labelAt(rest string) bool {
	head, _, ok := strings.Cut(rest, ":")
	if !ok {
		return false
	}
	_, known := s.labels[strings.TrimSpace(head)]
	return known
}
