package text_test

import (
	"testing"

	"github.com/fwojciec/lawdoc/text"
	"github.com/stretchr/testify/assert"
)

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	scanner := text.NewScanner(text.DefaultLabels)

	t.Run("takes the value from the same segment", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("发布日期: 2024-03-01\n发布机构: 自然资源部")

		assert.Equal(t, []string{"2024-03-01"}, fields[text.FieldPublishDate])
		assert.Equal(t, []string{"自然资源部"}, fields[text.FieldIssuingBody])
	})

	t.Run("takes the value from the next segment of a table row", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("发文字号\t自然资发〔2024〕1号\t发布日期\t2024-03-01")

		assert.Equal(t, []string{"自然资发〔2024〕1号"}, fields[text.FieldDocumentNumber])
		assert.Equal(t, []string{"2024-03-01"}, fields[text.FieldPublishDate])
	})

	t.Run("takes the value from the following line", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("发布机构\n自然资源部\n正文开始")

		assert.Equal(t, []string{"自然资源部"}, fields[text.FieldIssuingBody])
	})

	t.Run("skips blank lines between a label and its value", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("\n发布日期:\n\n\n2024-03-01\n\n正文开始")

		assert.Equal(t, []string{"2024-03-01"}, fields[text.FieldPublishDate])
	})

	t.Run("never reaches past the following line with text", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("发布日期\n正文开始\n2024-03-01")

		assert.Equal(t, []string{"正文开始"}, fields[text.FieldPublishDate])
	})

	t.Run("splits several labelled values on one line", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("发文机关:自然资源部  发布日期:2024-03-01 来源: 自然资源部办公厅")

		assert.Equal(t, []string{"自然资源部"}, fields[text.FieldIssuingBody])
		assert.Equal(t, []string{"2024-03-01"}, fields[text.FieldPublishDate])
		assert.Equal(t, []string{"自然资源部办公厅"}, fields[text.FieldOrigin])
	})

	t.Run("does not split at a label inside a value", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("标题: 关于主题分类:试行办法的通知")

		assert.Equal(t, []string{"关于主题分类:试行办法的通知"}, fields[text.FieldTitle])
		assert.Empty(t, fields[text.FieldCategory])
	})

	t.Run("does not take a label as the value of another label", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("发布机构\n发文字号: 第1号")

		assert.Empty(t, fields[text.FieldIssuingBody])
		assert.Equal(t, []string{"第1号"}, fields[text.FieldDocumentNumber])
	})

	t.Run("matches labels with interior spaces", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("发 布 机 构\t自然资源部")

		assert.Equal(t, []string{"自然资源部"}, fields[text.FieldIssuingBody])
	})

	t.Run("matches a label followed by a space and value", func(t *testing.T) {
		t.Parallel()

		fields := scanner.Fields("索引号 000019174/2024-00001")

		assert.Equal(t, []string{"000019174/2024-00001"}, fields[text.FieldIndexNumber])
	})

	t.Run("ignores unknown labels and prose", func(t *testing.T) {
		t.Parallel()

		matches := scanner.Scan("备注: 无\n来源于实践的经验")

		assert.Empty(t, matches)
	})

	t.Run("reports line numbers", func(t *testing.T) {
		t.Parallel()

		matches := scanner.Scan("标题: 通知\n\n来源: 自然资源部")

		if assert.Len(t, matches, 2) {
			assert.Equal(t, 0, matches[0].Line)
			assert.Equal(t, 2, matches[1].Line)
			assert.Equal(t, "来源", matches[1].Label)
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "发布日期:2024", text.Normalize("发布日期：２０２４"))
	assert.Equal(t, "a b\tc\nd", text.Normalize("a b\tc\nd"))
	assert.Equal(t, "ab", text.Normalize("a\u200bb"))
}

func TestCleanLines(t *testing.T) {
	t.Parallel()

	in := "  第一条   内容 \r\n\n\n\n 第二条　内容  \n"

	assert.Equal(t, "第一条 内容\n\n第二条 内容", text.CleanLines(in))
}

func TestLabelWords(t *testing.T) {
	t.Parallel()

	words := text.LabelWords(map[string]text.Field{"来源": text.FieldOrigin, "发布机构": text.FieldIssuingBody})

	assert.Equal(t, []string{"发布机构", "来源"}, words)
}
