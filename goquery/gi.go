package goquery

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/text"
)

// KindGI is the adapter kind of the government information disclosure
// portal.
const KindGI = "gi"

// GILayout parses the government information disclosure portal. Its
// search page is a single "table.table" with one row per document:
// index number, title, document number and publish date. The title cell
// may carry a hidden "div.box" table with the full metadata.
type GILayout struct{}

// NewGIAdapter returns an Adapter for a source served by the government
// information disclosure portal.
func NewGIAdapter(src lawdoc.SourceConfig, opts ...Option) *Adapter {
	return NewAdapter(src, GILayout{}, opts...)
}

// ParseListHTML returns one item per document row, skipping the header.
func (GILayout) ParseListHTML(doc *goquery.Document) ([]ListItem, bool) {
	table := doc.Find("table.table").First()
	if table.Length() == 0 {
		return nil, hasNoResultMarker(doc)
	}

	var items []ListItem
	ownRows(table).Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		if item, ok := parseGIRow(row); ok {
			items = append(items, item)
		}
	})
	return items, true
}

func parseGIRow(row *goquery.Selection) (ListItem, bool) {
	cells := row.ChildrenFiltered("td")
	if cells.Length() < 4 {
		return ListItem{}, false
	}
	index := text.Compact(cells.Eq(0).Text())
	if !isIndexNumber(index) {
		return ListItem{}, false
	}

	titleCell := cells.Eq(1)
	link := titleCell.Find("a[target=_blank]").First()
	if link.Length() == 0 {
		link = titleCell.Find("a").First()
	}
	href, ok := link.Attr("href")
	if !ok {
		return ListItem{}, false
	}

	item := ListItem{
		Title:          cleanInline(link.Text()),
		URL:            href,
		IndexNumber:    index,
		DocumentNumber: cleanInline(cells.Eq(2).Text()),
		PublishDate:    cleanInline(cells.Eq(3).Text()),
	}

	titleCell.Find("div.box table tr").Each(func(_ int, detail *goquery.Selection) {
		dc := detail.ChildrenFiltered("td")
		if dc.Length() < 2 {
			return
		}
		label := text.Compact(dc.Eq(0).Text())
		value := cleanInline(dc.Eq(1).Text())
		if value == "" {
			return
		}
		switch {
		case strings.Contains(label, "标题"):
			item.Title = value
		case strings.Contains(label, "发文字号"):
			item.DocumentNumber = value
		case strings.Contains(label, "生成日期") || strings.Contains(label, "发布日期"):
			item.PublishDate = value
		case strings.Contains(label, "实施日期"):
			item.EffectiveDate = value
		case strings.Contains(label, "发布机构") || strings.Contains(label, "发文机关"):
			item.IssuingBody = value
		case strings.Contains(label, "分类"):
			item.Category = value
		case strings.Contains(label, "效力"):
			item.EffectLevel = value
		}
	})
	return item, item.Title != ""
}

// isIndexNumber reports whether s looks like an index number such as
// "000019174/2024-00123" rather than a label.
func isIndexNumber(s string) bool {
	r := []rune(s)
	return len(r) >= 4 && unicode.IsDigit(r[0])
}

// BodySelectors implements Layout.
func (GILayout) BodySelectors() []string {
	return DefaultBodySelectors
}

// BoilerplateSelectors implements Layout.
func (GILayout) BoilerplateSelectors() []string {
	return []string{".header", ".footer", ".crumb", ".rightBox", ".relate"}
}
