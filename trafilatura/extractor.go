// Package trafilatura implements lawdoc.Extractor with go-trafilatura. It
// is tried after readability when a detail page has no known body
// container.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/lawdoc"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements lawdoc.Extractor at compile time.
var _ lawdoc.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to locate the body of a detail page.
type Extractor struct {
	opts trafilatura.Options
}

// NewExtractor creates a new Extractor tuned for Chinese government pages:
// links are kept so attachments survive extraction, and tables are kept
// because regulations often carry schedules as tables.
func NewExtractor() *Extractor {
	return &Extractor{
		opts: trafilatura.Options{
			EnableFallback:  true,
			TargetLanguage:  "zh",
			IncludeLinks:    true,
			ExcludeComments: true,
		},
	}
}

// Extract processes raw HTML and returns the main content.
func (e *Extractor) Extract(rawHTML string) (*lawdoc.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), e.opts)
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "trafilatura: %v", err)
	}
	if result.ContentNode == nil {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "trafilatura: no content found")
	}

	contentHTML, err := renderNode(result.ContentNode)
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.EINTERNAL, "trafilatura: %v", err)
	}

	return &lawdoc.ExtractResult{
		Title:       result.Metadata.Title,
		ContentHTML: contentHTML,
	}, nil
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
