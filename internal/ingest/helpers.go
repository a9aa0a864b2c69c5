package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// cleanText collapses runs of whitespace and trims the string.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateText cuts a string to max length in bytes, appending ellipsis if
// truncated. The cut lands on a rune boundary so the result stays valid
// UTF-8.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return truncateOnRuneBoundary(text, maxLen-3) + "..."
	}
	return truncateOnRuneBoundary(text, maxLen)
}

// truncateOnRuneBoundary returns the longest prefix of s that fits in n
// bytes without splitting a rune.
func truncateOnRuneBoundary(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// HTMLToText converts HTML to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return cleanText(doc.Text())
}

var descriptionPolicy = bluemonday.StrictPolicy()

// SanitizeDescription strips markup and invalid UTF-8 from scraped
// description text before it is stored.
func SanitizeDescription(s string) string {
	s = sanitizeUTF8(s)
	s = descriptionPolicy.Sanitize(s)
	return cleanText(s)
}

// sanitizeUTF8 removes invalid UTF-8 byte sequences that upset Postgres.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// appendUnique appends v to list unless an equal entry (case-insensitive)
// already exists.
func appendUnique(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}
