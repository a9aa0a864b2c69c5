package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform tags for the five supported listing sites.
const (
	PlatformCafe           = "cafe"
	PlatformArtCall        = "artcall"
	PlatformShowSubmit     = "showsubmit"
	PlatformArtworkArchive = "artwork_archive"
	PlatformZapplication   = "zapplication"
)

// Platforms lists every supported source platform tag.
var Platforms = []string{
	PlatformCafe,
	PlatformArtCall,
	PlatformShowSubmit,
	PlatformArtworkArchive,
	PlatformZapplication,
}

// KnownPlatform reports whether tag names one of the supported platforms.
func KnownPlatform(tag string) bool {
	for _, p := range Platforms {
		if p == tag {
			return true
		}
	}
	return false
}

// opportunityNamespace is fixed so IDs stay stable across runs and hosts.
var opportunityNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DeterministicID derives a stable record ID from the source platform and a
// unique key (URL, platform-native ID, or title). Same inputs always yield
// the same ID, which is what makes upserts idempotent.
func DeterministicID(platform, uniqueKey string) uuid.UUID {
	return uuid.NewSHA1(opportunityNamespace, []byte(platform+":"+uniqueKey))
}

// Opportunity is the canonical record shared by all platforms.
type Opportunity struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Organization    string         `json:"organization,omitempty"`
	URL             string         `json:"url"`
	SourcePlatform  string         `json:"source_platform"`
	AlternateURLs   []string       `json:"alternate_urls,omitempty"`
	DeadlineRaw     string         `json:"deadline_raw,omitempty"`
	DeadlineParsed  *time.Time     `json:"deadline_parsed,omitempty"`
	LocationRaw     string         `json:"location_raw,omitempty"`
	LocationCity    string         `json:"location_city,omitempty"`
	LocationState   string         `json:"location_state,omitempty"`
	LocationCountry string         `json:"location_country,omitempty"` // only set when non-USA
	FeeRaw          string         `json:"fee_raw,omitempty"`
	FeeAmount       *float64       `json:"fee_amount,omitempty"`
	FeeIsFree       bool           `json:"fee_is_free"`
	Description     string         `json:"description,omitempty"`
	Eligibility     string         `json:"eligibility,omitempty"`
	Email           string         `json:"email,omitempty"`
	Extras          map[string]any `json:"extras,omitempty"`
	IsActive        bool           `json:"is_active"`
	FirstSeen       time.Time      `json:"first_seen"`
	LastSeen        time.Time      `json:"last_seen"`
	TimesSeen       int            `json:"times_seen"`
}

// CompositeKey identifies a record across runs for enrichment memoization.
// Titles are stabler than URLs on these platforms, so platform+title it is.
func (o *Opportunity) CompositeKey() string {
	return o.SourcePlatform + ":" + o.Title
}

// Location confidence levels.
const (
	ConfidenceHigh         = "high"
	ConfidenceMedium       = "medium"
	ConfidenceLow          = "low"
	ConfidenceNotSpecified = "not_specified"
)

// Location types.
const (
	LocationPhysical     = "physical"
	LocationOnline       = "online"
	LocationHybrid       = "hybrid"
	LocationNotSpecified = "not_specified"
)

// Extraction sources (provenance of a resolved location).
const (
	SourceField       = "field"
	SourceDescription = "description"
	SourceInferred    = "inferred"
)

// Sentinel display strings. LocationMetadata.Enriched is never empty: it is
// always a real location, "Online", or "Not Specified".
const (
	SentinelOnline       = "Online"
	SentinelNotSpecified = "Not Specified"
)

// LocationMetadata records what was seen versus what was inferred, so a
// consumer can always recover the raw value.
type LocationMetadata struct {
	Original         string `json:"original"`
	Enriched         string `json:"enriched"`
	Confidence       string `json:"confidence"`
	Type             string `json:"type"`
	ExtractionSource string `json:"extraction_source,omitempty"`
}

// ScrapeRun tracks one execution of a platform scraper.
type ScrapeRun struct {
	ID             uuid.UUID  `json:"id"`
	SourcePlatform string     `json:"source_platform"`
	Status         string     `json:"status"` // running, completed, failed
	ItemsFound     int        `json:"items_found"`
	ItemsSaved     int        `json:"items_saved"`
	Errors         int        `json:"errors"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}
