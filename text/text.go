// Package text normalizes page text and recognizes the label/value pairs
// and dates that regulatory portals print around a document's body.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds compatibility characters (full-width colons, digits and
// spaces) to their canonical forms with NFKC and maps every Unicode space
// to an ASCII space. Line and tab structure is preserved.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\t':
			return r
		case '\u200b', '\ufeff':
			return -1
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

// CleanLines tidies extracted body text: runs of spaces collapse to one,
// each line is trimmed and consecutive blank lines collapse to a single
// blank line. The characters themselves are left untouched.
func CleanLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")

	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, isSpace), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Compact removes all whitespace, which is how labels like "发 布 机 构"
// are matched.
func Compact(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), "")
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\u200b' || r == '\ufeff'
}
