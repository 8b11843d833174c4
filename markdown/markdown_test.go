package markdown_test

import (
	"testing"
	"time"

	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/markdown"
	"github.com/fwojciec/lawdoc/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *lawdoc.DocumentRecord {
	pub := lawdoc.Date{Year: 2024, Month: time.March, Day: 1}
	eff := lawdoc.Date{Year: 2024, Month: time.April, Day: 1}
	return &lawdoc.DocumentRecord{
		DocumentID:     "t20240301_1001",
		SourceID:       "flfg",
		Title:          "自然资源部关于规范土地登记的通知",
		DocumentNumber: "自然资发〔2024〕12号",
		IssuingBody:    "自然资源部",
		PublishDate:    &pub,
		EffectiveDate:  &eff,
		EffectLevel:    lawdoc.EffectLevelNormative,
		Validity:       "现行有效",
		BodyText:       "第一条 为规范土地登记。\n第二条 本通知自发布之日起施行。",
		BodyHTML:       "<p>第一条 为规范土地登记。</p><p>第二条 本通知自发布之日起施行。</p>",
		DetailURL:      "https://f.mnr.gov.cn/202403/t20240301_1001.html",
		FetchTimestamp: time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC),
		Attachments: []lawdoc.Attachment{
			{Filename: "附件1.pdf", URL: "https://f.mnr.gov.cn/a.pdf", LocalPath: "files/0001_附件1.pdf"},
			{Filename: "附件2.doc", URL: "https://f.mnr.gov.cn/b.doc"},
		},
	}
}

func passthrough() *mock.Converter {
	return &mock.Converter{ConvertFn: func(html string) (string, error) {
		return "第一条 为规范土地登记。\n\n第二条 本通知自发布之日起施行。", nil
	}}
}

func TestFormatter_Format(t *testing.T) {
	t.Parallel()

	t.Run("writes header sections and attachments", func(t *testing.T) {
		t.Parallel()

		out, err := markdown.NewFormatter(passthrough()).Format(testRecord())
		require.NoError(t, err)

		want := `---
title: "自然资源部关于规范土地登记的通知"
document_id: "t20240301_1001"
source: "flfg"
source_url: "https://f.mnr.gov.cn/202403/t20240301_1001.html"
issuing_body: "自然资源部"
publish_date: "2024-03-01"
effective_date: "2024-04-01"
document_number: "自然资发〔2024〕12号"
effect_level: "规范性文件"
validity: "现行有效"
fetched_at: "2024-03-05T08:30:00Z"
---

# 自然资源部关于规范土地登记的通知

## 基本信息

- **发布机构**: 自然资源部
- **发布日期**: 2024-03-01
- **发文字号**: 自然资发〔2024〕12号
- **生效日期**: 2024-04-01
- **效力级别**: 规范性文件
- **有效性**: 现行有效
- **来源链接**: [查看原文](https://f.mnr.gov.cn/202403/t20240301_1001.html)

---

## 正文内容

第一条 为规范土地登记。

第二条 本通知自发布之日起施行。

## 附件

- [附件1.pdf](../files/0001_附件1.pdf)
- [附件2.doc](https://f.mnr.gov.cn/b.doc)
`
		assert.Equal(t, want, string(out))
	})

	t.Run("writes a notice when the body is empty", func(t *testing.T) {
		t.Parallel()

		rec := testRecord()
		rec.BodyText = ""
		rec.BodyHTML = ""

		out, err := markdown.NewFormatter(nil).Format(rec)

		require.NoError(t, err)
		assert.Contains(t, string(out), "> **注意**: 该政策的正文内容无法自动获取。")
	})

	t.Run("keeps required keys when metadata is missing", func(t *testing.T) {
		t.Parallel()

		rec := &lawdoc.DocumentRecord{DocumentID: "a", SourceID: "gi", Title: "标题"}

		out, err := markdown.NewFormatter(nil).Format(rec)
		require.NoError(t, err)

		fm, _, err := markdown.ParseFrontMatter(out)
		require.NoError(t, err)
		assert.Equal(t, "标题", fm.Title)
		assert.Empty(t, fm.PublishDate)
		assert.Contains(t, string(out), "publish_date: \"\"\n")
		assert.Contains(t, string(out), "effect_level: \"\"\n")
		assert.NotContains(t, string(out), "validity:")
	})

	t.Run("produces identical output for identical records", func(t *testing.T) {
		t.Parallel()

		f := markdown.NewFormatter(passthrough())

		a, err := f.Format(testRecord())
		require.NoError(t, err)
		b, err := f.Format(testRecord())
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})
}

func TestParseFrontMatter(t *testing.T) {
	t.Parallel()

	t.Run("reverses the formatter header", func(t *testing.T) {
		t.Parallel()

		rec := testRecord()
		rec.Title = `标题: 含"引号"与#号`

		out, err := markdown.NewFormatter(passthrough()).Format(rec)
		require.NoError(t, err)

		fm, body, err := markdown.ParseFrontMatter(out)

		require.NoError(t, err)
		assert.Equal(t, markdown.NewFrontMatter(rec), fm)
		assert.True(t, len(body) > 0)
		assert.Contains(t, string(body), "## 正文内容")
	})

	t.Run("returns EINVALID without a header", func(t *testing.T) {
		t.Parallel()

		_, _, err := markdown.ParseFrontMatter([]byte("# title\n"))

		assert.Equal(t, lawdoc.EINVALID, lawdoc.ErrorCode(err))
	})

	t.Run("returns EINVALID for an unterminated header", func(t *testing.T) {
		t.Parallel()

		_, _, err := markdown.ParseFrontMatter([]byte("---\ntitle: \"x\"\n"))

		assert.Equal(t, lawdoc.EINVALID, lawdoc.ErrorCode(err))
	})
}
