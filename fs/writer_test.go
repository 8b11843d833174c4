package fs_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/fs"
	"github.com/fwojciec/lawdoc/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *lawdoc.DocumentRecord {
	return &lawdoc.DocumentRecord{
		DocumentID: "t20240301_1001",
		SourceID:   "flfg",
		Title:      "关于规范土地登记的通知",
		BodyText:   "第一条 为规范土地登记。",
		Attachments: []lawdoc.Attachment{
			{Filename: "附件1.pdf", URL: "https://f.mnr.gov.cn/a.pdf"},
		},
	}
}

func formatter(content string) *mock.Formatter {
	return &mock.Formatter{FormatFn: func(*lawdoc.DocumentRecord) ([]byte, error) {
		return []byte(content), nil
	}}
}

func failingFormatter() *mock.Formatter {
	return &mock.Formatter{FormatFn: func(*lawdoc.DocumentRecord) ([]byte, error) {
		return nil, lawdoc.Errorf(lawdoc.ECONVERSION, "cannot render")
	}}
}

func downloader(content string) *mock.Session {
	return &mock.Session{DownloadFn: func(_ context.Context, _ string, w io.Writer) (int64, error) {
		n, err := io.WriteString(w, content)
		return int64(n), err
	}}
}

func newWriter(dir string, opts ...fs.Option) *fs.Writer {
	opts = append([]fs.Option{
		fs.WithMarkdown(formatter("# md")),
		fs.WithDOCX(formatter("docx")),
	}, opts...)
	return fs.NewWriter(dir, opts...)
}

func readFile(t *testing.T, dir, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func TestWriter_WriteRecord(t *testing.T) {
	t.Parallel()

	t.Run("writes every format under its directory", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		rec := testRecord()

		res, err := newWriter(dir).WriteRecord(context.Background(), rec, downloader("%PDF"))

		require.NoError(t, err)
		assert.Equal(t, 1, res.Number)
		assert.Empty(t, res.FailedFormats)
		assert.Equal(t, map[string]string{
			lawdoc.FormatJSON:     "json/policy_关于规范土地登记的通知_flfg.json",
			lawdoc.FormatMarkdown: "markdown/0001_关于规范土地登记的通知.md",
			lawdoc.FormatDOCX:     "docx/0001_关于规范土地登记的通知.docx",
		}, res.Paths)
		assert.Equal(t, "# md", readFile(t, dir, res.Paths[lawdoc.FormatMarkdown]))
		assert.Equal(t, "docx", readFile(t, dir, res.Paths[lawdoc.FormatDOCX]))
		assert.Equal(t, "%PDF", readFile(t, dir, "files/0001_附件1.pdf"))
	})

	t.Run("records attachment paths in the JSON output", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		rec := testRecord()

		res, err := newWriter(dir).WriteRecord(context.Background(), rec, downloader("x"))
		require.NoError(t, err)

		var got lawdoc.DocumentRecord
		require.NoError(t, json.Unmarshal([]byte(readFile(t, dir, res.Paths[lawdoc.FormatJSON])), &got))
		require.Len(t, got.Attachments, 1)
		assert.Equal(t, "files/0001_附件1.pdf", got.Attachments[0].LocalPath)
		assert.Equal(t, "files/0001_附件1.pdf", rec.Attachments[0].LocalPath)
	})

	t.Run("writes Chinese text unescaped in JSON", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		rec := testRecord()
		rec.BodyText = "<第一条> & 附则"

		res, err := newWriter(dir).WriteRecord(context.Background(), rec, nil)
		require.NoError(t, err)

		content := readFile(t, dir, res.Paths[lawdoc.FormatJSON])
		assert.Contains(t, content, `"title": "关于规范土地登记的通知"`)
		assert.Contains(t, content, `"body_text": "<第一条> & 附则"`)
	})

	t.Run("shares one number across a record's files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := newWriter(dir)
		ctx := context.Background()

		_, err := w.WriteRecord(ctx, testRecord(), downloader("x"))
		require.NoError(t, err)

		rec := testRecord()
		rec.DocumentID = "t20240302_1002"
		rec.Title = "第二份文件"
		res, err := w.WriteRecord(ctx, rec, downloader("y"))
		require.NoError(t, err)

		assert.Equal(t, 2, res.Number)
		assert.Equal(t, "markdown/0002_第二份文件.md", res.Paths[lawdoc.FormatMarkdown])
		assert.Equal(t, "y", readFile(t, dir, "files/0002_附件1.pdf"))
	})

	t.Run("resumes numbering from files on disk", func(t *testing.T) {
		t.Parallel()

		// Given a previous run left numbered files behind
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "files"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "files", "0041_old.pdf"), nil, 0o644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "markdown"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "markdown", "0007_old.md"), nil, 0o644))

		// When a new writer writes a record
		res, err := newWriter(dir).WriteRecord(context.Background(), testRecord(), nil)

		// Then numbering continues after the highest number
		require.NoError(t, err)
		assert.Equal(t, 42, res.Number)
	})

	t.Run("rewrites a document's files in place", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		first, err := newWriter(dir).WriteRecord(ctx, testRecord(), downloader("v1"))
		require.NoError(t, err)

		// When a new writer writes the same document again
		rec := testRecord()
		rec.BodyText = "第一条 修订后的内容。"
		second, err := newWriter(dir).WriteRecord(ctx, rec, downloader("v2"))
		require.NoError(t, err)

		// Then the same files are replaced
		assert.Equal(t, first.Paths, second.Paths)
		assert.Equal(t, first.Number, second.Number)
		assert.Equal(t, 1, rec.OutputNumber)
		assert.Contains(t, readFile(t, dir, second.Paths[lawdoc.FormatJSON]), "修订后的内容")
		assert.Equal(t, "v2", readFile(t, dir, "files/0001_附件1.pdf"))
		for _, sub := range []string{"json", "markdown", "docx", "files"} {
			entries, err := os.ReadDir(filepath.Join(dir, sub))
			require.NoError(t, err)
			assert.Len(t, entries, 1, sub)
		}
	})

	t.Run("suffixes names of different documents that clash", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := newWriter(dir)
		ctx := context.Background()

		first, err := w.WriteRecord(ctx, testRecord(), nil)
		require.NoError(t, err)
		rec := testRecord()
		rec.DocumentID = "t20240302_1002"
		second, err := w.WriteRecord(ctx, rec, nil)
		require.NoError(t, err)
		again, err := newWriter(dir).WriteRecord(ctx, rec, nil)
		require.NoError(t, err)

		assert.Equal(t, "json/policy_关于规范土地登记的通知_flfg.json", first.Paths[lawdoc.FormatJSON])
		assert.Equal(t, "json/policy_关于规范土地登记的通知_flfg_2.json", second.Paths[lawdoc.FormatJSON])
		assert.Equal(t, second.Paths, again.Paths)
	})

	t.Run("renames the JSON file when the title changes", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		_, err := newWriter(dir).WriteRecord(ctx, testRecord(), nil)
		require.NoError(t, err)
		rec := testRecord()
		rec.Title = "关于规范土地登记的通知（修订）"
		res, err := newWriter(dir).WriteRecord(ctx, rec, nil)
		require.NoError(t, err)

		assert.Equal(t, "json/policy_关于规范土地登记的通知（修订）_flfg.json", res.Paths[lawdoc.FormatJSON])
		assert.Equal(t, "markdown/0001_关于规范土地登记的通知（修订）.md", res.Paths[lawdoc.FormatMarkdown])
		for _, sub := range []string{"json", "markdown"} {
			entries, err := os.ReadDir(filepath.Join(dir, sub))
			require.NoError(t, err)
			assert.Len(t, entries, 1, sub)
		}
	})

	t.Run("ignores unreadable JSON files when indexing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "json"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "json", "policy_关于规范土地登记的通知_flfg.json"), []byte("{"), 0o644))

		res, err := newWriter(dir).WriteRecord(context.Background(), testRecord(), nil)

		require.NoError(t, err)
		assert.Equal(t, "json/policy_关于规范土地登记的通知_flfg_2.json", res.Paths[lawdoc.FormatJSON])
	})

	t.Run("reports failed formats and still writes the rest", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := fs.NewWriter(dir, fs.WithMarkdown(failingFormatter()), fs.WithDOCX(formatter("docx")))

		res, err := w.WriteRecord(context.Background(), testRecord(), nil)

		require.NoError(t, err)
		assert.Equal(t, []string{lawdoc.FormatMarkdown}, res.FailedFormats)
		assert.Contains(t, res.Paths, lawdoc.FormatJSON)
		assert.Contains(t, res.Paths, lawdoc.FormatDOCX)
		assert.NotContains(t, res.Paths, lawdoc.FormatMarkdown)
	})

	t.Run("warns when an attachment cannot be downloaded", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		rec := testRecord()
		dl := &mock.Session{DownloadFn: func(_ context.Context, _ string, w io.Writer) (int64, error) {
			io.WriteString(w, "partial")
			return 0, lawdoc.Errorf(lawdoc.EPERMANENT, "HTTP 404")
		}}

		res, err := newWriter(dir).WriteRecord(context.Background(), rec, dl)

		require.NoError(t, err)
		assert.True(t, rec.HasWarning(lawdoc.WarnAttachmentDownload))
		assert.Empty(t, rec.Attachments[0].LocalPath)
		assert.Contains(t, res.Paths, lawdoc.FormatJSON)

		entries, err := os.ReadDir(filepath.Join(dir, "files"))
		require.NoError(t, err)
		assert.Empty(t, entries, "failed downloads leave no files behind")
	})

	t.Run("skips disabled formats", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := newWriter(dir, fs.WithFormats(lawdoc.Formats{JSON: true}))

		res, err := w.WriteRecord(context.Background(), testRecord(), downloader("x"))

		require.NoError(t, err)
		assert.Equal(t, []string{lawdoc.FormatJSON}, keys(res.Paths))
		_, err = os.Stat(filepath.Join(dir, "files"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("fails when the JSON cannot be written", func(t *testing.T) {
		t.Parallel()

		// Given a regular file where the json directory should be
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "json"), nil, 0o644))

		_, err := newWriter(dir).WriteRecord(context.Background(), testRecord(), nil)

		require.Error(t, err)
		assert.False(t, lawdoc.IsRetryable(err))
	})

	t.Run("validates record", func(t *testing.T) {
		t.Parallel()

		_, err := newWriter(t.TempDir()).WriteRecord(context.Background(), &lawdoc.DocumentRecord{Title: "x"}, nil)

		assert.Equal(t, lawdoc.EINVALID, lawdoc.ErrorCode(err))
	})

	t.Run("allocates distinct numbers concurrently", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := newWriter(dir)

		var wg sync.WaitGroup
		numbers := make([]int, 8)
		for i := range numbers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := testRecord()
				rec.DocumentID = fmt.Sprintf("t20240301_%d", i)
				res, err := w.WriteRecord(context.Background(), rec, nil)
				if err == nil {
					numbers[i] = res.Number
				}
			}()
		}
		wg.Wait()

		seen := make(map[int]bool)
		for _, n := range numbers {
			assert.False(t, seen[n], "number %d allocated twice", n)
			seen[n] = true
		}
		assert.Len(t, seen, 8)

		entries, err := os.ReadDir(filepath.Join(dir, "json"))
		require.NoError(t, err)
		assert.Len(t, entries, 8)
	})
}

func TestMarshalRecord(t *testing.T) {
	t.Parallel()

	data, err := fs.MarshalRecord(testRecord())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"document_id\""))
}

func keys(m map[string]string) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

