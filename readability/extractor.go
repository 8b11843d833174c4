// Package readability implements lawdoc.Extractor with go-readability. It is
// the first fallback tried on detail pages whose body container is unknown.
package readability

import (
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/lawdoc"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements lawdoc.Extractor at compile time.
var _ lawdoc.Extractor = (*Extractor)(nil)

// DefaultMinTextLength is the shortest article text accepted. Chinese text
// is dense, so the threshold is in characters rather than words.
const DefaultMinTextLength = 20

// Extractor wraps go-readability to locate the body of a detail page.
type Extractor struct {
	minTextLength int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinTextLength sets the shortest article text accepted.
func WithMinTextLength(n int) Option {
	return func(e *Extractor) {
		e.minTextLength = n
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{minTextLength: DefaultMinTextLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract processes raw HTML and returns the main content. Returns EINVALID
// when the article found is too short to be a document body, so the caller
// can try another extractor.
func (e *Extractor) Extract(rawHTML string) (*lawdoc.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "readability: %v", err)
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(article.TextContent)); n < e.minTextLength {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "readability: article text too short (%d characters)", n)
	}

	return &lawdoc.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: article.Content,
	}, nil
}
