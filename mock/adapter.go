package mock

import "github.com/fwojciec/lawdoc"

var _ lawdoc.Adapter = (*Adapter)(nil)

// Adapter is a mock implementation of lawdoc.Adapter.
type Adapter struct {
	ListRequestFn   func(page int) *lawdoc.Request
	ParseListFn     func(page int, body []byte) (*lawdoc.ListPage, error)
	DetailRequestFn func(stub *lawdoc.DocumentStub) *lawdoc.Request
	ExtractDetailFn func(stub *lawdoc.DocumentStub, html string) (*lawdoc.DocumentRecord, error)
}

func (a *Adapter) ListRequest(page int) *lawdoc.Request {
	return a.ListRequestFn(page)
}

func (a *Adapter) ParseList(page int, body []byte) (*lawdoc.ListPage, error) {
	return a.ParseListFn(page, body)
}

func (a *Adapter) DetailRequest(stub *lawdoc.DocumentStub) *lawdoc.Request {
	return a.DetailRequestFn(stub)
}

func (a *Adapter) ExtractDetail(stub *lawdoc.DocumentStub, html string) (*lawdoc.DocumentRecord, error) {
	return a.ExtractDetailFn(stub, html)
}

var _ lawdoc.AdapterRegistry = (*AdapterRegistry)(nil)

// AdapterRegistry is a mock implementation of lawdoc.AdapterRegistry.
type AdapterRegistry struct {
	AdapterFn func(src *lawdoc.SourceConfig) (lawdoc.Adapter, error)
	KindsFn   func() []string
}

func (r *AdapterRegistry) Adapter(src *lawdoc.SourceConfig) (lawdoc.Adapter, error) {
	return r.AdapterFn(src)
}

func (r *AdapterRegistry) Kinds() []string {
	return r.KindsFn()
}
