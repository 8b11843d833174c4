package goquery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/lawdoc"
)

// jsonpRe matches a JSONP wrapper such as "callback({...});".
var jsonpRe = regexp.MustCompile(`^[A-Za-z_$][\w$.]*\s*\(([\s\S]*)\)\s*;?$`)

// jsonPayload returns the JSON document inside body if body is JSON or
// JSONP.
func jsonPayload(body []byte) ([]byte, bool) {
	switch body[0] {
	case '{', '[':
		return body, true
	}
	if m := jsonpRe.FindSubmatch(body); m != nil {
		inner := bytes.TrimSpace(m[1])
		if len(inner) > 0 && (inner[0] == '{' || inner[0] == '[') {
			return inner, true
		}
	}
	return nil, false
}

// parseJSONList accepts a bare array or an object carrying the items under
// "results" or "data".
func parseJSONList(payload []byte) ([]ListItem, error) {
	var raw []map[string]any
	if payload[0] == '[' {
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, lawdoc.Errorf(lawdoc.EINVALID, "failed to parse JSON list: %v", err)
		}
	} else {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return nil, lawdoc.Errorf(lawdoc.EINVALID, "failed to parse JSON list: %v", err)
		}
		items, ok := envelope["results"]
		if !ok {
			items, ok = envelope["data"]
		}
		if !ok {
			return nil, lawdoc.Errorf(lawdoc.EINVALID, "JSON list has no results")
		}
		if string(items) != "null" {
			if err := json.Unmarshal(items, &raw); err != nil {
				return nil, lawdoc.Errorf(lawdoc.EINVALID, "failed to parse JSON results: %v", err)
			}
		}
	}

	list := make([]ListItem, 0, len(raw))
	for _, item := range raw {
		list = append(list, ListItem{
			ID:             jsonString(item, "id", "docid"),
			Title:          jsonString(item, "title"),
			URL:            jsonString(item, "url", "link"),
			DocumentNumber: jsonString(item, "filenum", "fileno"),
			IssuingBody:    jsonString(item, "publisher", "department"),
			PublishDate:    jsonString(item, "pubdate", "publishdate"),
			EffectiveDate:  jsonString(item, "effectivedate"),
			EffectLevel:    jsonString(item, "level"),
			Validity:       jsonString(item, "status"),
			Category:       jsonString(item, "category"),
		})
	}
	return list, nil
}

// jsonString returns the first non-empty value among keys, formatting
// numbers without an exponent.
func jsonString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := item[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// resolveURL resolves href against base. Returns the empty string for
// unparseable or non-HTTP links. Fragments are dropped.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || isNonHTTPLink(href) || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	resolved := b.ResolveReference(ref)
	resolved.Fragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}

// documentID derives a stable identifier from a detail URL: the last path
// segment without its extension ("t20240301_1234567" for
// ".../t20240301_1234567.html"), or an "id" query parameter. URLs with
// neither are identified by a hash of the whole URL.
func documentID(detailURL string) string {
	u, err := url.Parse(detailURL)
	if err != nil {
		return ""
	}
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	switch base {
	case "", ".", "/", "index", "detail", "view":
		return fmt.Sprintf("u%016x", xxhash.Sum64String(detailURL))
	}
	return base
}
