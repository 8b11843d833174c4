package fs

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/lawdoc"
)

// Name limits in runes. Chinese titles are three bytes per rune, so these
// keep generated names well under the 255-byte limit of common filesystems.
const (
	maxTitleRunes = 60
	maxFileRunes  = 80
)

// SanitizeName makes s safe to use as a file name on Windows, macOS and
// Linux. Path separators, reserved characters and control characters
// become underscores; leading and trailing dots and spaces are dropped.
func SanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`\/:*?"<>|`, r):
			return '_'
		case unicode.IsControl(r):
			return '_'
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, s)
	return strings.Trim(s, " .")
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), " .")
}

// truncateFile shortens a file name to at most n runes, keeping its
// extension.
func truncateFile(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	ext := path.Ext(s)
	if utf8.RuneCountInString(ext) >= n {
		ext = ""
	}
	return truncate(strings.TrimSuffix(s, ext), n-utf8.RuneCountInString(ext)) + ext
}

// TitleName returns the sanitized, length-limited title used in output
// file names. Records without a usable title fall back to their ID.
func TitleName(rec *lawdoc.DocumentRecord) string {
	if name := truncate(SanitizeName(rec.Title), maxTitleRunes); name != "" {
		return name
	}
	return truncate("document_"+SanitizeName(rec.DocumentID), maxTitleRunes)
}

// AttachmentName returns the file name for an attachment: its display name
// when that carries an extension, otherwise the last segment of its URL.
func AttachmentName(a *lawdoc.Attachment) string {
	name := SanitizeName(a.Filename)
	if path.Ext(name) == "" {
		if u, err := url.Parse(a.URL); err == nil {
			base := SanitizeName(path.Base(u.Path))
			switch {
			case name == "":
				name = base
			case path.Ext(base) != "":
				name += path.Ext(base)
			}
		}
	}
	if name == "" || name == "_" {
		name = "attachment"
	}
	return truncateFile(name, maxFileRunes)
}

// numbered prefixes name with the record's four-digit sequence number.
func numbered(n int, name string) string {
	return fmt.Sprintf("%04d_%s", n, name)
}

// parseNumber returns the sequence number prefixing a generated file name.
func parseNumber(name string) (int, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found || len(prefix) < 4 {
		return 0, false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
