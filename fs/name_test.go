package fs_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/fs"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "keeps Chinese text", in: "关于规范土地登记的通知", want: "关于规范土地登记的通知"},
		{name: "replaces path separators", in: "土地/矿产\\海洋", want: "土地_矿产_海洋"},
		{name: "replaces reserved characters", in: `a:b*c?d"e<f>g|h`, want: "a_b_c_d_e_f_g_h"},
		{name: "replaces control characters", in: "a\x00b\tc", want: "a_b_c"},
		{name: "trims dots and spaces", in: " ..名称.. ", want: "名称"},
		{name: "keeps full-width punctuation", in: "自然资发〔2024〕12号", want: "自然资发〔2024〕12号"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, fs.SanitizeName(tt.in))
		})
	}
}

func TestTitleName(t *testing.T) {
	t.Parallel()

	t.Run("truncates long titles", func(t *testing.T) {
		t.Parallel()

		rec := &lawdoc.DocumentRecord{Title: strings.Repeat("土地", 100)}

		assert.Equal(t, 60, utf8.RuneCountInString(fs.TitleName(rec)))
	})

	t.Run("cuts long titles with a dot at the end", func(t *testing.T) {
		t.Parallel()

		title := strings.Repeat("国土空间规划", 10) + "（2024.3版）"
		rec := &lawdoc.DocumentRecord{Title: title}

		name := fs.TitleName(rec)

		assert.Equal(t, []rune(title)[:60], []rune(name))
		assert.NotContains(t, name, "版")
	})

	t.Run("falls back to the document ID", func(t *testing.T) {
		t.Parallel()

		rec := &lawdoc.DocumentRecord{Title: "...", DocumentID: "t20240301_1001"}

		assert.Equal(t, "document_t20240301_1001", fs.TitleName(rec))
	})
}

func TestAttachmentName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   lawdoc.Attachment
		want string
	}{
		{
			name: "uses the display name with its extension",
			in:   lawdoc.Attachment{Filename: "附件1：申请表.doc", URL: "https://f.mnr.gov.cn/P020240301.doc"},
			want: "附件1：申请表.doc",
		},
		{
			name: "borrows the extension from the URL",
			in:   lawdoc.Attachment{Filename: "附件1", URL: "https://f.mnr.gov.cn/P020240301.pdf"},
			want: "附件1.pdf",
		},
		{
			name: "uses the URL name without a display name",
			in:   lawdoc.Attachment{URL: "https://f.mnr.gov.cn/files/P020240301.xlsx?v=2"},
			want: "P020240301.xlsx",
		},
		{
			name: "falls back to a generic name",
			in:   lawdoc.Attachment{},
			want: "attachment",
		},
		{
			name: "keeps the extension when truncating",
			in:   lawdoc.Attachment{Filename: strings.Repeat("长", 100) + ".pdf"},
			want: strings.Repeat("长", 76) + ".pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, fs.AttachmentName(&tt.in))
		})
	}
}
