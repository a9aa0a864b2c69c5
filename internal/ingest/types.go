package ingest

import "time"

// RawOpportunity is the untrusted, loosely-typed record a platform scraper
// produces. Every field except Title and URL may be absent or malformed;
// the builder treats them all as optional.
type RawOpportunity struct {
	PlatformID   string // platform-native identifier if the site exposes one
	Title        string
	Organization string
	URL          string
	Platform     string
	Deadline     string // free text
	Location     string // free text
	Fee          string // free text
	Description  string
	Eligibility  string
	Email        string
	ScrapedAt    time.Time
	Extra        map[string]any // anything platform-specific beyond the canonical set
}
