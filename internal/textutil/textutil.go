// Package textutil holds the text and date normalisation helpers used across the ingestion pipeline.
package textutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyDate is returned by ParseDate for blank input.
var ErrEmptyDate = errors.New("empty date")

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// StripAccents removes combining marks after NFKD decomposition ("inflação" -> "inflacao").
func StripAccents(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SplitKeywords splits a comma-separated keyword string.
func SplitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// NormalizeKeywords trims, lowercases and strips accents from each keyword,
// drops empties and duplicates, and keeps the first-seen order.
// Entries that still contain commas are split first.
func NormalizeKeywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			kw := StripAccents(strings.ToLower(strings.TrimSpace(part)))
			if kw == "" {
				continue
			}
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}

// ParseDate tries the common feed and API date formats. Zone-less values are read as UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrEmptyDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}

// Summarize keeps the first n '.'-separated sentences and ensures a trailing period.
func Summarize(text string, n int) string {
	if text == "" || n <= 0 {
		return ""
	}
	parts := strings.Split(text, ".")
	if len(parts) > n {
		parts = parts[:n]
	}
	summary := strings.TrimSpace(strings.Join(parts, "."))
	if summary != "" && !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return summary
}

// ContainsAny reports whether haystack contains any of the needles, case-insensitively.
func ContainsAny(haystack string, needles []string) bool {
	low := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(low, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
