package lawdoc

import (
	"net/url"
	"strings"
)

// SourceConfig describes one portal endpoint pair and the adapter that
// understands it. The source name doubles as the source ID in the ledger
// and in output records.
type SourceConfig struct {
	Name              string `json:"name"`
	Adapter           string `json:"adapter"`
	BaseURL           string `json:"base_url"`
	SearchEndpoint    string `json:"search_endpoint"`
	DetailURLTemplate string `json:"detail_url_template"`
	ChannelID         string `json:"channel_id"`
	SearchWord        string `json:"search_word"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	Enabled           bool   `json:"enabled"`
	PageSize          int    `json:"page_size"`
	MaxPages          int    `json:"max_pages"`

	// Render fetches pages with a headless browser instead of plain HTTP.
	Render bool `json:"render"`
}

// DetailURLPlaceholder is replaced by the document ID in DetailURLTemplate.
const DetailURLPlaceholder = "{id}"

// Validate returns ECONFIG if required parameters are missing or malformed.
func (s *SourceConfig) Validate() error {
	if s.Name == "" {
		return Errorf(ECONFIG, "source name required")
	}
	if s.Adapter == "" {
		return Errorf(ECONFIG, "source %q: adapter required", s.Name)
	}
	if err := validateURL(s.BaseURL); err != nil {
		return Errorf(ECONFIG, "source %q: base_url: %s", s.Name, err)
	}
	if err := validateURL(s.SearchEndpoint); err != nil {
		return Errorf(ECONFIG, "source %q: search_endpoint: %s", s.Name, err)
	}
	if s.DetailURLTemplate != "" && !strings.Contains(s.DetailURLTemplate, DetailURLPlaceholder) {
		return Errorf(ECONFIG, "source %q: detail_url_template must contain %s", s.Name, DetailURLPlaceholder)
	}
	if s.ChannelID == "" {
		return Errorf(ECONFIG, "source %q: channel_id required", s.Name)
	}
	if s.PageSize <= 0 {
		return Errorf(ECONFIG, "source %q: page_size must be positive", s.Name)
	}
	for _, d := range []string{s.StartDate, s.EndDate} {
		if d == "" {
			continue
		}
		if _, err := ParseDate(d); err != nil {
			return Errorf(ECONFIG, "source %q: invalid date filter %q", s.Name, d)
		}
	}
	if s.MaxPages < 0 {
		return Errorf(ECONFIG, "source %q: max_pages must not be negative", s.Name)
	}
	return nil
}

// DetailURL expands DetailURLTemplate for a document ID. It returns the
// empty string when no template is configured.
func (s *SourceConfig) DetailURL(documentID string) string {
	if s.DetailURLTemplate == "" {
		return ""
	}
	return strings.ReplaceAll(s.DetailURLTemplate, DetailURLPlaceholder, url.PathEscape(documentID))
}

func validateURL(raw string) error {
	if raw == "" {
		return Errorf(ECONFIG, "required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Errorf(ECONFIG, "invalid URL %q", raw)
	}
	return nil
}

// Request describes one HTTP request an adapter wants issued.
type Request struct {
	Method string
	URL    string

	// Params are sent as the query string for GET and as a form body for POST.
	Params url.Values

	// Referer is sent when non-empty.
	Referer string
}

// FullURL returns the request URL with Params encoded as a query string.
func (r *Request) FullURL() string {
	if len(r.Params) == 0 {
		return r.URL
	}
	sep := "?"
	if strings.Contains(r.URL, "?") {
		sep = "&"
	}
	return r.URL + sep + r.Params.Encode()
}

// ListPage is the parsed content of one search results page.
type ListPage struct {
	Stubs   []*DocumentStub
	HasMore bool
}

// Adapter encodes one site's request shapes and layout quirks. Adapters
// never perform network I/O; they build requests and parse responses the
// caller has already fetched.
type Adapter interface {
	// ListRequest builds the search request for a 1-based page number.
	ListRequest(page int) *Request

	// ParseList parses a search response body into stubs.
	// Returns EINVALID if the body is not a recognizable result page.
	ParseList(page int, body []byte) (*ListPage, error)

	// DetailRequest builds the request for a stub's detail page.
	DetailRequest(stub *DocumentStub) *Request

	// ExtractDetail cleans a detail page and extracts a partial record.
	// Metadata that could not be confidently extracted is left empty and
	// reported as a warning on the record rather than as an error.
	ExtractDetail(stub *DocumentStub, html string) (*DocumentRecord, error)
}

// AdapterRegistry builds adapters for source configurations.
type AdapterRegistry interface {
	// Adapter returns the adapter for the source's adapter kind.
	// Returns ECONFIG if the kind is not registered.
	Adapter(src *SourceConfig) (Adapter, error)

	// Kinds returns all registered adapter kinds.
	Kinds() []string
}
