// Package docx renders document records as Office Open XML word
// processing documents. The body Markdown is parsed with goldmark and the
// package parts are built with etree.
package docx

import (
	"archive/zip"
	"bytes"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/fwojciec/lawdoc"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Compile-time interface verification.
var _ lawdoc.Formatter = (*Formatter)(nil)

// XML namespaces used by the package parts.
const (
	nsMain          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"

	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
)

// modified is stamped on every zip entry so identical records produce
// identical packages.
var modified = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Formatter implements lawdoc.Formatter for DOCX output.
type Formatter struct {
	conv lawdoc.Converter
	md   goldmark.Markdown
}

// NewFormatter creates a Formatter that converts body HTML with conv.
func NewFormatter(conv lawdoc.Converter) *Formatter {
	return &Formatter{
		conv: conv,
		md:   goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Format renders the record as a DOCX package.
func (f *Formatter) Format(rec *lawdoc.DocumentRecord) ([]byte, error) {
	document, err := f.document(rec).WriteToBytes()
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.ECONVERSION, "failed to encode document: %v", err)
	}

	parts := []struct {
		name string
		doc  *etree.Document
		data []byte
	}{
		{name: "[Content_Types].xml", doc: contentTypes()},
		{name: "_rels/.rels", doc: packageRels()},
		{name: "word/_rels/document.xml.rels", doc: documentRels()},
		{name: "word/styles.xml", doc: styles()},
		{name: "word/document.xml", data: document},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		data := p.data
		if p.doc != nil {
			if data, err = p.doc.WriteToBytes(); err != nil {
				return nil, lawdoc.Errorf(lawdoc.ECONVERSION, "failed to encode %s: %v", p.name, err)
			}
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, lawdoc.Errorf(lawdoc.ECONVERSION, "failed to add %s: %v", p.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, lawdoc.Errorf(lawdoc.ECONVERSION, "failed to write %s: %v", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, lawdoc.Errorf(lawdoc.ECONVERSION, "failed to close package: %v", err)
	}
	return buf.Bytes(), nil
}

// document builds word/document.xml.
func (f *Formatter) document(rec *lawdoc.DocumentRecord) *etree.Document {
	doc := newXML()
	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsMain)
	root.CreateAttr("xmlns:r", nsRelationships)
	body := root.CreateElement("w:body")

	b := &builder{body: body}

	title := b.paragraph("Heading1")
	title.SelectElement("w:pPr").CreateElement("w:jc").CreateAttr("w:val", "center")
	b.run(title, rec.Title, runStyle{})

	b.heading("基本信息")
	for _, field := range rec.Fields() {
		b.labelled(field.Label, field.Value)
	}
	if rec.DetailURL != "" {
		b.labelled("来源链接", rec.DetailURL)
	}

	b.heading("正文内容")
	if md := lawdoc.BodyMarkdown(f.conv, rec); md != "" {
		src := []byte(md)
		b.src = src
		b.blocks(f.md.Parser().Parse(text.NewReader(src)), blockStyle{})
	} else {
		b.run(b.paragraph(""), lawdoc.NoticeBodyUnavailable, runStyle{})
		b.run(b.paragraph(""), "请访问来源链接查看完整文档内容: "+rec.DetailURL, runStyle{})
	}

	if len(rec.Attachments) > 0 {
		b.heading("附件")
		for _, a := range rec.Attachments {
			b.labelled(a.Filename, a.URL)
		}
	}

	sect := body.CreateElement("w:sectPr")
	pgSz := sect.CreateElement("w:pgSz")
	pgSz.CreateAttr("w:w", "11906")
	pgSz.CreateAttr("w:h", "16838")
	pgMar := sect.CreateElement("w:pgMar")
	for _, side := range []string{"w:top", "w:right", "w:bottom", "w:left"} {
		pgMar.CreateAttr(side, "1440")
	}

	return doc
}

func newXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func contentTypes() *etree.Document {
	doc := newXML()
	types := doc.CreateElement("Types")
	types.CreateAttr("xmlns", nsContentTypes)

	def := types.CreateElement("Default")
	def.CreateAttr("Extension", "rels")
	def.CreateAttr("ContentType", "application/vnd.openxmlformats-package.relationships+xml")
	def = types.CreateElement("Default")
	def.CreateAttr("Extension", "xml")
	def.CreateAttr("ContentType", "application/xml")

	override := types.CreateElement("Override")
	override.CreateAttr("PartName", "/word/document.xml")
	override.CreateAttr("ContentType", "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml")
	override = types.CreateElement("Override")
	override.CreateAttr("PartName", "/word/styles.xml")
	override.CreateAttr("ContentType", "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml")
	return doc
}

func packageRels() *etree.Document {
	doc := newXML()
	rels := doc.CreateElement("Relationships")
	rels.CreateAttr("xmlns", nsPackageRels)
	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", relOfficeDocument)
	rel.CreateAttr("Target", "word/document.xml")
	return doc
}

func documentRels() *etree.Document {
	doc := newXML()
	rels := doc.CreateElement("Relationships")
	rels.CreateAttr("xmlns", nsPackageRels)
	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", relStyles)
	rel.CreateAttr("Target", "styles.xml")
	return doc
}

// styles builds word/styles.xml with the paragraph styles the builder
// references.
func styles() *etree.Document {
	doc := newXML()
	root := doc.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", nsMain)

	rPr := root.CreateElement("w:docDefaults").CreateElement("w:rPrDefault").CreateElement("w:rPr")
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", "Times New Roman")
	fonts.CreateAttr("w:hAnsi", "Times New Roman")
	fonts.CreateAttr("w:eastAsia", "宋体")
	rPr.CreateElement("w:sz").CreateAttr("w:val", "24")

	style(root, "Normal", "Normal", 0, false)
	for i, size := range []int{36, 32, 28, 26, 24, 24} {
		level := strconv.Itoa(i + 1)
		style(root, "Heading"+level, "heading "+level, size, true)
	}
	quote := style(root, "Quote", "Quote", 0, false)
	quote.SelectElement("w:pPr").CreateElement("w:ind").CreateAttr("w:left", "720")

	table := root.CreateElement("w:style")
	table.CreateAttr("w:type", "table")
	table.CreateAttr("w:styleId", "TableGrid")
	table.CreateElement("w:name").CreateAttr("w:val", "Table Grid")
	borders := table.CreateElement("w:tblPr").CreateElement("w:tblBorders")
	for _, side := range []string{"w:top", "w:left", "w:bottom", "w:right", "w:insideH", "w:insideV"} {
		b := borders.CreateElement(side)
		b.CreateAttr("w:val", "single")
		b.CreateAttr("w:sz", "4")
		b.CreateAttr("w:space", "0")
		b.CreateAttr("w:color", "auto")
	}

	return doc
}

func style(root *etree.Element, id, name string, size int, bold bool) *etree.Element {
	s := root.CreateElement("w:style")
	s.CreateAttr("w:type", "paragraph")
	s.CreateAttr("w:styleId", id)
	s.CreateElement("w:name").CreateAttr("w:val", name)
	if id != "Normal" {
		s.CreateElement("w:basedOn").CreateAttr("w:val", "Normal")
	}
	s.CreateElement("w:pPr").CreateElement("w:spacing").CreateAttr("w:after", "120")
	rPr := s.CreateElement("w:rPr")
	if bold {
		rPr.CreateElement("w:b")
	}
	if size > 0 {
		rPr.CreateElement("w:sz").CreateAttr("w:val", strconv.Itoa(size))
	}
	return s
}
