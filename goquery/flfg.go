package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/text"
)

// KindFLFG is the adapter kind of the laws and regulations portal.
const KindFLFG = "flfg"

// noResultMarkers appear on a search page that matched nothing.
var noResultMarkers = []string{"没有找到", "未找到", "共0条", "检索结果为0"}

// FLFGLayout parses the laws and regulations portal, where every search
// hit is a small table of label/value rows starting with the title.
type FLFGLayout struct{}

// NewFLFGAdapter returns an Adapter for a source served by the laws and
// regulations portal.
func NewFLFGAdapter(src lawdoc.SourceConfig, opts ...Option) *Adapter {
	return NewAdapter(src, FLFGLayout{}, opts...)
}

// ParseListHTML returns one item per result table.
func (FLFGLayout) ParseListHTML(doc *goquery.Document) ([]ListItem, bool) {
	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, hasNoResultMarker(doc)
	}

	var items []ListItem
	tables.Each(func(_ int, table *goquery.Selection) {
		rows := ownRows(table)
		if rows.Length() < 2 || rows.Length() > 10 {
			return
		}
		first := text.Compact(rows.First().Find("td, th").First().Text())
		if !strings.Contains(first, "标题") && !strings.Contains(first, "名称") {
			return
		}
		if item, ok := parseFLFGTable(table, rows); ok {
			items = append(items, item)
		}
	})
	return items, true
}

func parseFLFGTable(table, rows *goquery.Selection) (ListItem, bool) {
	var item ListItem
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return
		}
		label := text.Compact(cells.Eq(0).Text())
		valueCell := cells.Eq(1)
		value := cleanInline(valueCell.Text())

		switch {
		case strings.Contains(label, "标题") || strings.Contains(label, "名称"):
			item.Title = value
			if href, ok := valueCell.Find("a[href]").First().Attr("href"); ok {
				item.URL = href
			}
			if item.Title == "" {
				item.Title = cleanInline(valueCell.Find("a[href]").First().Text())
			}
		case strings.Contains(label, "文号"):
			item.DocumentNumber = value
		case strings.Contains(label, "效力") || strings.Contains(label, "级别"):
			item.EffectLevel = value
		case strings.Contains(label, "实施日期") || strings.Contains(label, "生效日期") || strings.Contains(label, "施行日期"):
			item.EffectiveDate = value
		case strings.Contains(label, "成文时间") || strings.Contains(label, "生成日期") ||
			strings.Contains(label, "发布日期") || strings.Contains(label, "公布日期"):
			item.PublishDate = value
		case strings.Contains(label, "机构") || strings.Contains(label, "机关"):
			item.IssuingBody = value
		case strings.Contains(label, "时效") || strings.Contains(label, "有效性"):
			item.Validity = value
		}
	})

	if item.Title == "" || item.URL == "" {
		table.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			linkText := cleanInline(a.Text())
			if isNonHTTPLink(href) || len([]rune(linkText)) <= 5 {
				return true
			}
			if item.Title == "" {
				item.Title = linkText
			}
			item.URL = href
			return false
		})
	}
	return item, item.Title != "" && item.URL != ""
}

// BodySelectors implements Layout.
func (FLFGLayout) BodySelectors() []string {
	return DefaultBodySelectors
}

// BoilerplateSelectors implements Layout.
func (FLFGLayout) BoilerplateSelectors() []string {
	return []string{".top", ".bottom", ".dqwz", ".xgwj"}
}

// ownRows returns the rows of table that do not belong to a nested table.
func ownRows(table *goquery.Selection) *goquery.Selection {
	node := table.Get(0)
	return table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("table").Get(0) == node
	})
}

func hasNoResultMarker(doc *goquery.Document) bool {
	body := text.Compact(doc.Find("body").Text())
	for _, m := range noResultMarkers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}
