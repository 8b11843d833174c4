package mock

import "github.com/fwojciec/lawdoc"

var _ lawdoc.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of lawdoc.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*lawdoc.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*lawdoc.ExtractResult, error) {
	return e.ExtractFn(html)
}

var _ lawdoc.Converter = (*Converter)(nil)

// Converter is a mock implementation of lawdoc.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
