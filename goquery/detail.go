package goquery

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultBodySelectors are the body containers used by TRS-based portals,
// most specific first.
var DefaultBodySelectors = []string{
	"div.TRS_Editor",
	"div.content",
	"#content",
	"div.article-content",
	"div.main-content",
	"div.article",
}

// DefaultBoilerplateSelectors is the page chrome removed from every page.
var DefaultBoilerplateSelectors = []string{
	"script", "style", "noscript", "iframe", "form",
	"nav", "header", "footer",
	".nav", ".navbar", ".breadcrumb", ".position", ".location",
	".search", "#search", ".searchbox",
	".share", ".bdsharebuttonbox", ".fenxiang",
	".print", ".toolbar",
}

// controlTexts are the visible labels of print/close/share widgets. An
// element whose entire text is one of them is removed.
var controlTexts = map[string]bool{
	"打印":   true,
	"打印本页": true,
	"打印此页": true,
	"关闭":   true,
	"关闭窗口": true,
	"关闭本页": true,
	"分享到":  true,
	"返回顶部": true,
	"收藏":   true,
	"字号大中小": true,
}

// attachmentExtensions are the document file types linked as attachments.
// Compound extensions come first so ".tar.gz" wins over ".gz".
var attachmentExtensions = []string{
	".tar.gz", ".tar.bz2", ".tar.xz",
	".zip", ".tar", ".rar", ".7z", ".gz", ".bz2",
	".doc", ".docx", ".pdf", ".xls", ".xlsx", ".ppt", ".pptx", ".wps", ".ofd",
	".txt", ".csv", ".xml", ".json",
}

// ExtractDetail cleans a detail page and extracts a partial record.
func (a *Adapter) ExtractDetail(stub *lawdoc.DocumentStub, rawHTML string) (*lawdoc.DocumentRecord, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "empty detail page for %s", stub.DocumentID)
	}
	// raw keeps the page as served for body_html_raw; doc is cleaned.
	raw, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "failed to parse HTML: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.EINVALID, "failed to parse HTML: %v", err)
	}

	rec := &lawdoc.DocumentRecord{
		DocumentID:     stub.DocumentID,
		SourceID:       stub.SourceID,
		Title:          a.desplicer.Repair(stub.Title),
		DetailURL:      stub.DetailURL,
		FetchTimestamp: a.now().UTC(),
		Attachments:    []lawdoc.Attachment{},
		Warnings:       []string{},
	}

	twins := make(map[*html.Node]*html.Node)
	pairNodes(doc.Get(0), raw.Get(0), twins)

	a.removeBoilerplate(doc)
	metaText := a.removeMetadataTables(doc)

	body, selector := a.selectBody(doc)
	if selector != "" {
		if node := twins[body.Get(0)]; node != nil {
			rec.BodyHTMLRaw = outerHTML(raw.FindNodes(node))
		}
	} else {
		rec.BodyHTMLRaw = outerHTML(raw.Find("body"))
		rec.AddWarning(lawdoc.WarnBodyFallback)
	}
	if body == nil {
		body = doc.Find("body")
	}

	bodyText := a.desplicer.Repair(blockText(body))
	rec.BodyText = text.CleanLines(bodyText)
	if inner, err := body.Html(); err == nil {
		rec.BodyHTML = strings.TrimSpace(a.desplicer.Repair(inner))
	}
	if rec.BodyText == "" {
		rec.AddWarning(lawdoc.WarnBodyEmpty)
	}

	meta := a.scanner.Fields(text.Normalize(a.desplicer.Repair(metaText)))
	inBody := a.scanner.Fields(text.Normalize(bodyText))
	a.applyMetadata(rec, stub, meta, inBody)
	if rec.Title == "" {
		rec.Title = pageTitle(doc)
	}

	rec.Attachments = attachments(body, stub.DetailURL)
	return rec, nil
}

// removeBoilerplate deletes site chrome and print/close/share controls.
func (a *Adapter) removeBoilerplate(doc *goquery.Document) {
	selectors := append(append([]string{}, DefaultBoilerplateSelectors...), a.layout.BoilerplateSelectors()...)
	doc.Find(strings.Join(selectors, ", ")).Remove()

	doc.Find("a, span, button, li, p, div, td").Each(func(_ int, sel *goquery.Selection) {
		t := text.Compact(sel.Text())
		t = strings.Trim(t, "[]【】()（）")
		if controlTexts[t] {
			sel.Remove()
		}
	})
}

// removeMetadataTables deletes tables laid out as label/value pairs and
// returns their text, one row per line with cells separated by tabs. A
// table qualifies when at least two of its own cells hold a known label and
// it does not contain a body container.
func (a *Adapter) removeMetadataTables(doc *goquery.Document) string {
	bodySel := strings.Join(a.layout.BodySelectors(), ", ")

	var lines []string
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if table.Find(bodySel).Length() > 0 {
			return
		}
		labels := 0
		ownCells(table).Each(func(_ int, cell *goquery.Selection) {
			head, _, _ := strings.Cut(text.Normalize(cell.Text()), ":")
			if a.scanner.IsLabel(head) {
				labels++
			}
		})
		if labels < 2 {
			return
		}
		lines = append(lines, blockText(table))
		table.Remove()
	})
	return strings.Join(lines, "\n")
}

// ownCells returns the cells of table that do not belong to a nested table.
func ownCells(table *goquery.Selection) *goquery.Selection {
	node := table.Get(0)
	return table.Find("td, th").FilterFunction(func(_ int, cell *goquery.Selection) bool {
		return cell.Closest("table").Get(0) == node
	})
}

// selectBody returns the first candidate container with text. The selector
// is empty when a fallback extractor produced the body instead. Both
// results are nil/empty when nothing matched.
func (a *Adapter) selectBody(doc *goquery.Document) (*goquery.Selection, string) {
	for _, selector := range a.layout.BodySelectors() {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 && strings.TrimSpace(sel.Text()) != "" {
			return sel, selector
		}
	}

	if len(a.fallbacks) == 0 {
		return nil, ""
	}
	cleaned, err := doc.Html()
	if err != nil {
		return nil, ""
	}
	for _, ex := range a.fallbacks {
		result, err := ex.Extract(cleaned)
		if err != nil || strings.TrimSpace(result.ContentHTML) == "" {
			continue
		}
		frag, err := goquery.NewDocumentFromReader(strings.NewReader(result.ContentHTML))
		if err != nil {
			continue
		}
		sel := frag.Find("body")
		if strings.TrimSpace(sel.Text()) != "" {
			return sel, ""
		}
	}
	return nil, ""
}

// applyMetadata fills record fields. Metadata tables take precedence over
// labels in the body text, which take precedence over the list page.
func (a *Adapter) applyMetadata(rec *lawdoc.DocumentRecord, stub *lawdoc.DocumentStub, meta, inBody map[text.Field][]string) {
	values := func(f text.Field) []string {
		return append(append([]string{}, meta[f]...), inBody[f]...)
	}
	first := func(f text.Field, fallback string) string {
		if v := values(f); len(v) > 0 {
			return cleanInline(v[0])
		}
		return cleanInline(fallback)
	}

	if rec.Title == "" {
		rec.Title = first(text.FieldTitle, "")
	}
	rec.DocumentNumber = first(text.FieldDocumentNumber, stub.DocumentNumber)
	rec.IssuingBody = first(text.FieldIssuingBody, stub.IssuingBody)
	rec.Validity = first(text.FieldValidity, stub.Validity)
	rec.Category = first(text.FieldCategory, stub.Category)
	rec.IndexNumber = first(text.FieldIndexNumber, stub.IndexNumber)
	rec.Origin = first(text.FieldOrigin, "")

	level, known := lawdoc.ParseEffectLevel(first(text.FieldEffectLevel, stub.EffectLevel))
	rec.EffectLevel = level
	if !known {
		rec.AddWarning(lawdoc.WarnEffectLevelUnknown)
	}

	var ambiguous, invalid bool
	rec.PublishDate, ambiguous, invalid = pickDate(values(text.FieldPublishDate), stub.PublishDate)
	if invalid {
		rec.AddWarning(lawdoc.WarnPublishDateInvalid)
	}
	if ambiguous {
		rec.AddWarning(lawdoc.WarnPublishDateAmbiguous)
	}

	rec.EffectiveDate, _, invalid = pickDate(values(text.FieldEffectiveDate), stub.EffectiveDate)
	if invalid {
		rec.AddWarning(lawdoc.WarnEffectiveDateInvalid)
	}
}

// pickDate validates date candidates found on the page. When the page has
// none, the list page value is used instead. A page value that fails the
// grammar is never replaced by the list value. ambiguous is true when
// valid candidates disagree; invalid is true when any candidate was
// discarded.
func pickDate(candidates []string, fallback string) (date *lawdoc.Date, ambiguous, invalid bool) {
	if len(candidates) == 0 && fallback != "" {
		candidates = []string{fallback}
	}
	for _, c := range candidates {
		d, err := text.ParseDate(c)
		if err != nil {
			invalid = true
			continue
		}
		if date == nil {
			date = &d
			continue
		}
		if d != *date {
			ambiguous = true
		}
	}
	return date, ambiguous, invalid
}

// attachments returns links in the body whose path ends with a document
// file extension, in document order and without duplicates.
func attachments(body *goquery.Selection, pageURL string) []lawdoc.Attachment {
	out := []lawdoc.Attachment{}
	seen := make(map[string]bool)
	body.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		resolved := resolveURL(pageURL, href)
		if resolved == "" || seen[resolved] {
			return
		}
		u, err := url.Parse(resolved)
		if err != nil {
			return
		}
		ext := attachmentExtension(u.Path)
		if ext == "" {
			return
		}
		seen[resolved] = true
		out = append(out, lawdoc.Attachment{
			Filename: attachmentName(cleanInline(a.Text()), u.Path, ext),
			URL:      resolved,
		})
	})
	return out
}

func attachmentExtension(p string) string {
	lower := strings.ToLower(p)
	for _, ext := range attachmentExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// attachmentName prefers the link text, falling back to the file name in
// the URL. The extension is appended when the text lacks it.
func attachmentName(linkText, urlPath, ext string) string {
	name := linkText
	if len([]rune(name)) < 2 {
		name = path.Base(urlPath)
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	if !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}

// pageTitle reads the document title from the page when the list page did
// not provide one.
func pageTitle(doc *goquery.Document) string {
	if t, ok := doc.Find(`meta[name="ArticleTitle"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return cleanInline(t)
	}
	return cleanInline(doc.Find("title").First().Text())
}

// pairNodes maps each node of a to the node at the same position in b.
// Both trees must come from parsing the same HTML.
func pairNodes(a, b *html.Node, m map[*html.Node]*html.Node) {
	if a == nil || b == nil {
		return
	}
	m[a] = b
	for ca, cb := a.FirstChild, b.FirstChild; ca != nil && cb != nil; ca, cb = ca.NextSibling, cb.NextSibling {
		pairNodes(ca, cb, m)
	}
}

func outerHTML(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	s, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return s
}

// blockText renders the text of sel keeping its visual structure: block
// elements and <br> start new lines, table rows become lines and their
// cells are separated by tabs. Source formatting whitespace is collapsed.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeBlockText(&b, n)
	}
	return b.String()
}

func writeBlockText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(strings.Map(func(r rune) rune {
			switch r {
			case '\n', '\r', '\t':
				return ' '
			}
			return r
		}, n.Data))
		return
	case html.ElementNode:
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeBlockText(b, c)
		}
		return
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript:
		return
	case atom.Br:
		b.WriteString("\n")
		return
	}

	block := isBlock(n.DataAtom)
	if block {
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeBlockText(b, c)
	}
	switch n.DataAtom {
	case atom.Td, atom.Th:
		b.WriteString("\t")
	case atom.Tr:
		b.WriteString("\n")
	}
	if block {
		b.WriteString("\n")
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Blockquote, atom.Pre,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Dl, atom.Dt, atom.Dd,
		atom.Table, atom.Center, atom.Hr:
		return true
	}
	return false
}
