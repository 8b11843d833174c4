package lawdoc

import "strings"

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms cleaned body HTML into Markdown.
	Convert(html string) (string, error)
}

// NoticeBodyUnavailable replaces the body of documents whose text could
// not be extracted.
const NoticeBodyUnavailable = "该政策的正文内容无法自动获取。"

// BodyMarkdown returns the record's body as Markdown. The cleaned body
// HTML is converted when present; otherwise, or when conversion fails, the
// plain body text is used with one paragraph per line. It returns the
// empty string when the record has no body.
func BodyMarkdown(conv Converter, rec *DocumentRecord) string {
	if conv != nil && strings.TrimSpace(rec.BodyHTML) != "" {
		if md, err := conv.Convert(rec.BodyHTML); err == nil && strings.TrimSpace(md) != "" {
			return md
		}
	}

	var paras []string
	for _, line := range strings.Split(rec.BodyText, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paras = append(paras, line)
		}
	}
	return strings.Join(paras, "\n\n")
}
