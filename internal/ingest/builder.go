package ingest

import (
	"time"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

// maxDescriptionLen caps stored description text.
const maxDescriptionLen = 5000

// FromRaw maps a raw per-platform record into the canonical schema:
// deterministic ID, normalized fee and location, parsed deadline, sanitized
// description, and everything unmapped tucked into Extras.
func FromRaw(raw RawOpportunity) models.Opportunity {
	uniqueKey := raw.URL
	if uniqueKey == "" {
		uniqueKey = raw.PlatformID
	}
	if uniqueKey == "" {
		uniqueKey = raw.Title
	}

	now := time.Now().UTC()
	opp := models.Opportunity{
		ID:             models.DeterministicID(raw.Platform, uniqueKey),
		Title:          cleanText(raw.Title),
		Organization:   cleanText(raw.Organization),
		URL:            cleanText(raw.URL),
		SourcePlatform: raw.Platform,
		DeadlineRaw:    cleanText(raw.Deadline),
		FeeRaw:         cleanText(raw.Fee),
		Eligibility:    cleanText(raw.Eligibility),
		Email:          cleanText(raw.Email),
		LastSeen:       now,
		IsActive:       true,
	}

	if raw.Description != "" {
		opp.Description = TruncateText(SanitizeDescription(raw.Description), maxDescriptionLen)
	}

	// Fee: canonical display text plus structured amount/free flag.
	opp.FeeRaw = NormalizeFee(opp.FeeRaw)
	opp.FeeAmount, opp.FeeIsFree = ParseFee(opp.FeeRaw)

	// Location: platform-aware cleanup, then split into city/state.
	opp.LocationRaw = NormalizeLocation(raw.Location, raw.Platform)
	city, state := SplitCityState(opp.LocationRaw)
	opp.LocationCity = city
	opp.LocationState = state
	if state == "INTL" {
		opp.LocationCountry = "International"
	}

	// Deadline: best-effort parse; a call with no parseable deadline is
	// treated as ongoing and stays active.
	if opp.DeadlineRaw != "" {
		if parsed, err := ParseDeadline(opp.DeadlineRaw); err == nil {
			opp.DeadlineParsed = &parsed
			if parsed.Before(now) {
				opp.IsActive = false
			}
		}
	}

	if len(raw.Extra) > 0 || raw.PlatformID != "" {
		opp.Extras = map[string]any{}
		for k, v := range raw.Extra {
			opp.Extras[k] = v
		}
		if raw.PlatformID != "" {
			opp.Extras["platform_id"] = raw.PlatformID
		}
	}

	return opp
}
