// Package goquery implements lawdoc.Adapter for the supported portals using
// goquery for HTML parsing. Adapters are pure: they build requests and parse
// bodies that were fetched elsewhere.
package goquery

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/text"
)

// Ensure Adapter implements lawdoc.Adapter at compile time.
var _ lawdoc.Adapter = (*Adapter)(nil)

// Layout is the part of an adapter that differs between portals.
type Layout interface {
	// ParseListHTML extracts list items from an HTML search page. The
	// second return value is false when the page has no recognizable list
	// container at all.
	ParseListHTML(doc *goquery.Document) ([]ListItem, bool)

	// BodySelectors lists candidate body containers, most specific first.
	BodySelectors() []string

	// BoilerplateSelectors lists site chrome removed before extraction, in
	// addition to DefaultBoilerplateSelectors.
	BoilerplateSelectors() []string
}

// ListItem is one raw entry of a search results page.
type ListItem struct {
	ID    string
	Title string
	URL   string

	DocumentNumber string
	IssuingBody    string
	PublishDate    string
	EffectiveDate  string
	EffectLevel    string
	Validity       string
	Category       string
	IndexNumber    string
}

// Adapter implements lawdoc.Adapter for a single source. Site-specific
// behavior comes from its Layout.
type Adapter struct {
	src       lawdoc.SourceConfig
	layout    Layout
	fallbacks []lawdoc.Extractor
	desplicer *text.Desplicer
	scanner   *text.Scanner
	now       func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithFallbackExtractors sets the extractors tried, in order, when none of
// the layout's body selectors match.
func WithFallbackExtractors(extractors ...lawdoc.Extractor) Option {
	return func(a *Adapter) {
		a.fallbacks = extractors
	}
}

// WithDesplicer sets the repair applied to page text before scanning.
// Defaults to repairing the known labels split by text.DefaultFillers.
func WithDesplicer(d *text.Desplicer) Option {
	return func(a *Adapter) {
		a.desplicer = d
	}
}

// WithClock sets the clock used for fetch timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// NewAdapter creates an Adapter for src using the given layout.
func NewAdapter(src lawdoc.SourceConfig, layout Layout, opts ...Option) *Adapter {
	a := &Adapter{
		src:     src,
		layout:  layout,
		scanner: text.NewScanner(text.DefaultLabels),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.desplicer == nil {
		a.desplicer = text.NewDesplicer(text.LabelWords(text.DefaultLabels), text.DefaultFillers)
	}
	return a
}

// ListRequest builds a was5 search request for the given page.
func (a *Adapter) ListRequest(page int) *lawdoc.Request {
	params := map[string][]string{
		"channelid":  {a.src.ChannelID},
		"searchword": {a.src.SearchWord},
		"page":       {strconv.Itoa(page)},
		"perpage":    {strconv.Itoa(a.src.PageSize)},
		"searchtype": {"title"},
		"orderby":    {"RELEVANCE"},
	}
	if a.src.StartDate != "" {
		params["starttime"] = []string{a.src.StartDate}
	}
	if a.src.EndDate != "" {
		params["endtime"] = []string{a.src.EndDate}
	}
	return &lawdoc.Request{
		Method:  "GET",
		URL:     a.src.SearchEndpoint,
		Params:  params,
		Referer: a.src.BaseURL,
	}
}

// ParseList parses an HTML, JSON or JSONP search response.
func (a *Adapter) ParseList(page int, body []byte) (*lawdoc.ListPage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "empty list response")
	}

	var items []ListItem
	if payload, ok := jsonPayload(body); ok {
		parsed, err := parseJSONList(payload)
		if err != nil {
			return nil, err
		}
		items = parsed
	} else {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, lawdoc.Errorf(lawdoc.EINVALID, "failed to parse HTML: %v", err)
		}
		parsed, found := a.layout.ParseListHTML(doc)
		if !found {
			return nil, lawdoc.Errorf(lawdoc.EINVALID, "no result list on page %d", page)
		}
		items = parsed
	}

	listPage := &lawdoc.ListPage{HasMore: len(items) >= a.src.PageSize}
	seen := make(map[string]bool)
	for _, item := range items {
		stub := a.stub(page, item)
		if stub == nil || seen[stub.DocumentID] {
			continue
		}
		seen[stub.DocumentID] = true
		listPage.Stubs = append(listPage.Stubs, stub)
	}
	return listPage, nil
}

// stub turns a list item into a stub. The detail URL is the item's link
// resolved against the base URL or, for items that only carry an ID, the
// source's detail URL template. Returns nil for items that cannot be fetched.
func (a *Adapter) stub(page int, item ListItem) *lawdoc.DocumentStub {
	var detailURL, id string
	switch {
	case item.URL != "":
		detailURL = resolveURL(a.src.BaseURL, item.URL)
		id = documentID(detailURL)
	case item.ID != "":
		detailURL = a.src.DetailURL(item.ID)
		id = item.ID
	}
	if detailURL == "" || id == "" {
		return nil
	}
	return &lawdoc.DocumentStub{
		SourceID:       a.src.Name,
		DocumentID:     id,
		Title:          cleanInline(item.Title),
		DetailURL:      detailURL,
		ListPageIndex:  page,
		DocumentNumber: cleanInline(item.DocumentNumber),
		IssuingBody:    cleanInline(item.IssuingBody),
		PublishDate:    cleanInline(item.PublishDate),
		EffectiveDate:  cleanInline(item.EffectiveDate),
		EffectLevel:    cleanInline(item.EffectLevel),
		Validity:       cleanInline(item.Validity),
		Category:       cleanInline(item.Category),
		IndexNumber:    cleanInline(item.IndexNumber),
	}
}

// DetailRequest builds the request for a stub's detail page.
func (a *Adapter) DetailRequest(stub *lawdoc.DocumentStub) *lawdoc.Request {
	detailURL := stub.DetailURL
	if detailURL == "" {
		detailURL = a.src.DetailURL(stub.DocumentID)
	}
	return &lawdoc.Request{
		Method:  "GET",
		URL:     detailURL,
		Referer: a.src.BaseURL,
	}
}

// cleanInline collapses whitespace in a single-line value.
func cleanInline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
