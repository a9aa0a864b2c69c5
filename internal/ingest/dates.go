package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// deadline text across the five platforms arrives in wildly different
// shapes: bare ISO dates from the CaFE API, "September 15th, 2026" from
// ShowSubmit detail pages, "Jan 5" badges from ArtCall.

var deadlineFormats = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
}

var ordinalSuffixRe = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)\b`)

var deadlinePrefixes = []string{
	"entry deadline:", "deadline:", "deadline is", "due date:", "due:",
	"closes:", "ends:", "apply by:",
}

// ParseDeadline parses free-text deadline strings on a best-effort basis.
// Absence of a parseable date is legal (rolling/ongoing calls), so failure
// is an error the caller may ignore.
func ParseDeadline(text string) (time.Time, error) {
	text = cleanDeadlineString(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty deadline text")
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	for _, format := range deadlineFormats {
		if t, err := time.Parse(format, text); err == nil {
			return toEndOfDay(t), nil
		}
	}

	if t := parseDeadlineWithRegex(text); !t.IsZero() {
		return toEndOfDay(t), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse deadline: %s", text)
}

func cleanDeadlineString(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range deadlinePrefixes {
		if idx := strings.Index(lower, p); idx != -1 {
			s = s[idx+len(p):]
			lower = lower[idx+len(p):]
		}
	}
	s = ordinalSuffixRe.ReplaceAllString(s, "$1")
	// Narrow no-break spaces leak out of ArtCall markup.
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(s)
}

var (
	isoDateRe   = regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)
	usDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(20\d{2})\b`)
	monthNameRe = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2}),?\s+(20\d{2})\b`)
)

// parseDeadlineWithRegex extracts a date embedded in longer prose.
func parseDeadlineWithRegex(text string) time.Time {
	if m := isoDateRe.FindString(text); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return t
		}
	}

	if m := usDateRe.FindStringSubmatch(text); m != nil {
		dateStr := fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3])
		if t, err := time.Parse("1/2/2006", dateStr); err == nil {
			return t
		}
	}

	if m := monthNameRe.FindStringSubmatch(text); m != nil {
		dateStr := fmt.Sprintf("%s %s %s", m[1], m[2], m[3])
		if t, err := time.Parse("January 2 2006", dateStr); err == nil {
			return t
		}
		if t, err := time.Parse("Jan 2 2006", dateStr); err == nil {
			return t
		}
	}

	return time.Time{}
}

// toEndOfDay pushes a date-only deadline to the last instant of that day so
// a call stays active through its deadline date.
func toEndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}
