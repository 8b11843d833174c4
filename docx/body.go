package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

// builder appends WordprocessingML paragraphs and tables to a body
// element. src is the Markdown source the AST segments refer to.
type builder struct {
	body *etree.Element
	src  []byte
}

type runStyle struct {
	bold   bool
	italic bool
	code   bool
}

type blockStyle struct {
	style  string
	indent int
}

// paragraph appends an empty paragraph with the given style.
func (b *builder) paragraph(style string) *etree.Element {
	p := b.body.CreateElement("w:p")
	pPr := p.CreateElement("w:pPr")
	if style != "" {
		pPr.CreateElement("w:pStyle").CreateAttr("w:val", style)
	}
	return p
}

func (b *builder) heading(s string) {
	b.run(b.paragraph("Heading2"), s, runStyle{})
}

// labelled appends a "label: value" paragraph with a bold label.
func (b *builder) labelled(label, value string) {
	p := b.paragraph("")
	b.run(p, label+": ", runStyle{bold: true})
	b.run(p, value, runStyle{})
}

func (b *builder) run(p *etree.Element, s string, rs runStyle) {
	s = sanitize(s)
	if s == "" {
		return
	}
	r := p.CreateElement("w:r")
	if rs.bold || rs.italic || rs.code {
		rPr := r.CreateElement("w:rPr")
		if rs.code {
			fonts := rPr.CreateElement("w:rFonts")
			fonts.CreateAttr("w:ascii", "Courier New")
			fonts.CreateAttr("w:hAnsi", "Courier New")
		}
		if rs.bold {
			rPr.CreateElement("w:b")
		}
		if rs.italic {
			rPr.CreateElement("w:i")
		}
	}
	t := r.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(s)
}

func (b *builder) lineBreak(p *etree.Element) {
	p.CreateElement("w:r").CreateElement("w:br")
}

func indent(p *etree.Element, level int) {
	if level > 0 {
		p.SelectElement("w:pPr").CreateElement("w:ind").CreateAttr("w:left", strconv.Itoa(420*level))
	}
}

// blocks renders the block children of parent.
func (b *builder) blocks(parent ast.Node, bs blockStyle) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Heading:
			// The document title and section headings take levels 1 and 2.
			level := min(n.Level+2, 6)
			b.inlines(b.paragraph("Heading"+strconv.Itoa(level)), n, runStyle{})
		case *ast.Paragraph, *ast.TextBlock:
			p := b.paragraph(bs.style)
			indent(p, bs.indent)
			b.inlines(p, n, runStyle{})
		case *ast.List:
			b.list(n, bs)
		case *ast.Blockquote:
			b.blocks(n, blockStyle{style: "Quote", indent: bs.indent})
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				line := strings.TrimRight(string(seg.Value(b.src)), "\n")
				p := b.paragraph(bs.style)
				indent(p, bs.indent)
				b.run(p, line, runStyle{code: true})
			}
		case *extast.Table:
			b.table(n)
		case *ast.ThematicBreak, *ast.HTMLBlock:
		default:
			b.blocks(n, bs)
		}
	}
}

func (b *builder) list(l *ast.List, bs blockStyle) {
	number := l.Start
	if number == 0 {
		number = 1
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = strconv.Itoa(number) + ". "
			number++
		}
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				p := b.paragraph(bs.style)
				indent(p, bs.indent+1)
				if first {
					b.run(p, marker, runStyle{})
					first = false
				}
				b.inlines(p, c, runStyle{})
			case *ast.List:
				b.list(c, blockStyle{style: bs.style, indent: bs.indent + 1})
			default:
				b.blocks(c, blockStyle{style: bs.style, indent: bs.indent + 1})
			}
		}
	}
}

func (b *builder) table(t *extast.Table) {
	tbl := b.body.CreateElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	tblPr.CreateElement("w:tblStyle").CreateAttr("w:val", "TableGrid")
	width := tblPr.CreateElement("w:tblW")
	width.CreateAttr("w:w", "0")
	width.CreateAttr("w:type", "auto")

	grid := tbl.CreateElement("w:tblGrid")
	for range t.Alignments {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", "2000")
	}

	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*extast.TableHeader)
		tr := tbl.CreateElement("w:tr")
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			tc := tr.CreateElement("w:tc")
			p := tc.CreateElement("w:p")
			p.CreateElement("w:pPr")
			b.inlines(p, cell, runStyle{bold: header})
		}
	}

	// Word merges adjacent tables unless a paragraph separates them.
	b.paragraph("")
}

// inlines renders the inline children of n into paragraph p.
func (b *builder) inlines(p *etree.Element, n ast.Node, rs runStyle) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.run(p, string(c.Segment.Value(b.src)), rs)
			if c.HardLineBreak() {
				b.lineBreak(p)
			} else if c.SoftLineBreak() {
				b.run(p, " ", rs)
			}
		case *ast.String:
			b.run(p, string(c.Value), rs)
		case *ast.Emphasis:
			inner := rs
			if c.Level >= 2 {
				inner.bold = true
			} else {
				inner.italic = true
			}
			b.inlines(p, c, inner)
		case *ast.CodeSpan:
			inner := rs
			inner.code = true
			b.inlines(p, c, inner)
		case *ast.AutoLink:
			b.run(p, string(c.Label(b.src)), rs)
		case *ast.RawHTML:
		default:
			b.inlines(p, c, rs)
		}
	}
}

// sanitize drops characters XML 1.0 does not allow.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' || r >= 0x20 && r != 0xFFFE && r != 0xFFFF {
			return r
		}
		return -1
	}, s)
}
