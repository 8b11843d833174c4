package docx_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/docx"
	"github.com/fwojciec/lawdoc/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func converter(md string) *mock.Converter {
	return &mock.Converter{ConvertFn: func(string) (string, error) { return md, nil }}
}

func testRecord() *lawdoc.DocumentRecord {
	pub := lawdoc.Date{Year: 2024, Month: time.March, Day: 1}
	return &lawdoc.DocumentRecord{
		DocumentID:     "t20240301_1001",
		SourceID:       "flfg",
		Title:          "自然资源部关于规范土地登记的通知",
		DocumentNumber: "自然资发〔2024〕12号",
		IssuingBody:    "自然资源部",
		PublishDate:    &pub,
		BodyHTML:       "<p>x</p>",
		DetailURL:      "https://f.mnr.gov.cn/202403/t20240301_1001.html",
		Attachments:    []lawdoc.Attachment{{Filename: "附件1.pdf", URL: "https://f.mnr.gov.cn/a.pdf"}},
	}
}

// unpack returns the package parts in archive order.
func unpack(t *testing.T, data []byte) ([]string, map[string][]byte) {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	parts := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names = append(names, f.Name)
		parts[f.Name] = b
	}
	return names, parts
}

// paragraphs returns the text of each body paragraph with its style.
func paragraphs(t *testing.T, documentXML []byte) [][2]string {
	t.Helper()

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(documentXML))

	var out [][2]string
	for _, p := range doc.FindElements("//w:body/w:p") {
		var style string
		if s := p.FindElement("w:pPr/w:pStyle"); s != nil {
			style = s.SelectAttrValue("w:val", "")
		}
		var text string
		for _, t := range p.FindElements("w:r/w:t") {
			text += t.Text()
		}
		out = append(out, [2]string{style, text})
	}
	return out
}

func TestFormatter_Format(t *testing.T) {
	t.Parallel()

	t.Run("writes a complete package", func(t *testing.T) {
		t.Parallel()

		out, err := docx.NewFormatter(converter("第一条 为规范土地登记。")).Format(testRecord())
		require.NoError(t, err)

		names, parts := unpack(t, out)
		assert.Equal(t, []string{
			"[Content_Types].xml",
			"_rels/.rels",
			"word/_rels/document.xml.rels",
			"word/styles.xml",
			"word/document.xml",
		}, names)
		assert.Contains(t, string(parts["[Content_Types].xml"]), "/word/document.xml")
	})

	t.Run("lays out title metadata body and attachments", func(t *testing.T) {
		t.Parallel()

		out, err := docx.NewFormatter(converter("# 总则\n\n第一条 为**规范**土地登记。")).Format(testRecord())
		require.NoError(t, err)

		_, parts := unpack(t, out)
		assert.Equal(t, [][2]string{
			{"Heading1", "自然资源部关于规范土地登记的通知"},
			{"Heading2", "基本信息"},
			{"", "发布机构: 自然资源部"},
			{"", "发布日期: 2024-03-01"},
			{"", "发文字号: 自然资发〔2024〕12号"},
			{"", "来源链接: https://f.mnr.gov.cn/202403/t20240301_1001.html"},
			{"Heading2", "正文内容"},
			{"Heading3", "总则"},
			{"", "第一条 为规范土地登记。"},
			{"Heading2", "附件"},
			{"", "附件1.pdf: https://f.mnr.gov.cn/a.pdf"},
		}, paragraphs(t, parts["word/document.xml"]))
	})

	t.Run("renders emphasis as bold runs", func(t *testing.T) {
		t.Parallel()

		out, err := docx.NewFormatter(converter("为**规范**登记")).Format(testRecord())
		require.NoError(t, err)

		_, parts := unpack(t, out)
		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromBytes(parts["word/document.xml"]))

		var bold []string
		for _, r := range doc.FindElements("//w:r") {
			if r.FindElement("w:rPr/w:b") != nil {
				bold = append(bold, r.FindElement("w:t").Text())
			}
		}
		assert.Contains(t, bold, "规范")
	})

	t.Run("renders Markdown tables as Word tables", func(t *testing.T) {
		t.Parallel()

		md := "| 项目 | 标准 |\n| --- | --- |\n| 宅基地 | 200平方米 |\n"
		out, err := docx.NewFormatter(converter(md)).Format(testRecord())
		require.NoError(t, err)

		_, parts := unpack(t, out)
		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromBytes(parts["word/document.xml"]))

		rows := doc.FindElements("//w:tbl/w:tr")
		require.Len(t, rows, 2)
		assert.Len(t, doc.FindElements("//w:tbl/w:tblGrid/w:gridCol"), 2)
		cells := rows[1].FindElements("w:tc")
		require.Len(t, cells, 2)
		assert.Equal(t, "200平方米", cells[1].FindElement("w:p/w:r/w:t").Text())
	})

	t.Run("numbers ordered list items", func(t *testing.T) {
		t.Parallel()

		out, err := docx.NewFormatter(converter("1. 申请\n2. 审核\n")).Format(testRecord())
		require.NoError(t, err)

		_, parts := unpack(t, out)
		var texts []string
		for _, p := range paragraphs(t, parts["word/document.xml"]) {
			texts = append(texts, p[1])
		}
		assert.Contains(t, texts, "1. 申请")
		assert.Contains(t, texts, "2. 审核")
	})

	t.Run("writes a notice when the body is empty", func(t *testing.T) {
		t.Parallel()

		rec := testRecord()
		rec.BodyHTML = ""

		out, err := docx.NewFormatter(nil).Format(rec)
		require.NoError(t, err)

		_, parts := unpack(t, out)
		assert.Contains(t, string(parts["word/document.xml"]), lawdoc.NoticeBodyUnavailable)
	})

	t.Run("drops characters XML cannot carry", func(t *testing.T) {
		t.Parallel()

		rec := testRecord()
		rec.Title = "标题\x00\x0b"

		out, err := docx.NewFormatter(nil).Format(rec)
		require.NoError(t, err)

		_, parts := unpack(t, out)
		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromBytes(parts["word/document.xml"]))
		assert.Equal(t, "标题", doc.FindElement("//w:body/w:p/w:r/w:t").Text())
	})

	t.Run("produces identical bytes for identical records", func(t *testing.T) {
		t.Parallel()

		f := docx.NewFormatter(converter("第一条 内容"))

		a, err := f.Format(testRecord())
		require.NoError(t, err)
		b, err := f.Format(testRecord())
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})
}
