package ingest

import (
	"regexp"
	"strings"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

// Countries recognized when standardizing international locations. US, UK
// and Canada get special handling and are skipped by the generic loop.
var countries = []string{
	"united states", "usa", "canada", "united kingdom", "uk", "australia",
	"germany", "france", "italy", "spain", "netherlands", "belgium",
	"japan", "china", "india", "mexico", "brazil", "argentina",
	"south africa", "egypt", "israel", "dubai", "singapore", "korea",
	"sweden", "norway", "denmark", "finland", "switzerland", "austria",
	"portugal", "greece", "turkey", "russia", "poland", "czech republic",
	"new zealand", "ireland", "scotland", "wales",
}

// venueKeywords hint at a physical venue when scanning free text.
var venueKeywords = []string{
	"gallery", "museum", "center", "centre", "studio", "space",
	"institute", "foundation", "society", "college", "university",
	"library", "theater", "theatre", "pavilion", "hall", "school",
}

// extendedOnlineWords covers the broader online vocabulary used when
// classifying a location field or a description lead-in.
var extendedOnlineWords = []string{
	"online", "virtual", "zoom", "digital", "remote",
	"internet", "web-based", "webinar", "streaming",
}

// IsOnlineLocation reports whether text indicates an online/virtual event.
func IsOnlineLocation(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range extendedOnlineWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// textMatch is one successful extraction from free text.
type textMatch struct {
	city  string
	state string
}

// textStrategy is one "try this pattern" step. Strategies are evaluated in
// order, first success wins.
type textStrategy struct {
	name string
	re   *regexp.Regexp
}

// descriptionStrategies anchor on a capitalized city token followed by a
// two-letter state code, each qualified by a different cue phrase. Order
// matters: the more specific cues run first, the bare trailing "City, ST"
// last.
var descriptionStrategies = []textStrategy{
	{"located_in", regexp.MustCompile(`(?:located|based|situated|held)\s+(?:in|at)\s+(?:the\s+)?(?:[\w\s]+?(?:Gallery|Museum|Center|Institute|Foundation|Studio|Space)\s+)?(?:in\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2})\b`)},
	{"residents", regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2})\s+(?:residents?|artists?|only)`)},
	{"street_address", regexp.MustCompile(`\d+\s+[\w\s]+(?:St|Street|Rd|Road|Ave|Avenue|Blvd|Boulevard|Dr|Drive)[,\s]+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2})\b`)},
	{"exhibition_at", regexp.MustCompile(`(?:exhibition|show|display|event)\s+(?:at|in)\s+[\w\s]+\s+in\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2})\b`)},
	{"trailing_city_state", regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2})\b(?:[.\s]|$)`)},
}

// EnrichLocation resolves the best-guess location for an opportunity and
// attaches provenance metadata under Extras["location_metadata"]. Resolution
// is ordered: existing field, description scan, organization inference,
// then the "Not Specified" sentinel. The raw value is never lost; it stays
// in the metadata's Original.
func EnrichLocation(opp *models.Opportunity, allowDescriptionScan bool) {
	current := strings.TrimSpace(opp.LocationRaw)

	// A record that already carries a sentinel and its metadata is a fixed
	// point; re-running must not drift it.
	if existing := existingMetadata(opp); existing != nil &&
		(current == models.SentinelOnline || current == models.SentinelNotSpecified) {
		return
	}

	meta := models.LocationMetadata{
		Original:   current,
		Confidence: models.ConfidenceHigh,
	}

	// Step 1: the field itself.
	if current != "" {
		if IsOnlineLocation(current) {
			meta.Enriched = models.SentinelOnline
			meta.Type = models.LocationOnline
			meta.ExtractionSource = models.SourceField
		} else if standardized := StandardizeLocation(current); standardized != "" {
			meta.Enriched = standardized
			meta.Type = models.LocationPhysical
			meta.ExtractionSource = models.SourceField
		} else {
			// Keep the raw value in play but flag it as weak.
			meta.Confidence = models.ConfidenceLow
		}
	}

	// Step 2: description scan.
	if (meta.Enriched == "" || meta.Confidence == models.ConfidenceLow) &&
		allowDescriptionScan && opp.Description != "" {
		if found := extractLocationFromText(opp.Description); found != nil {
			meta.Enriched = found.location
			meta.Confidence = found.confidence
			meta.Type = found.locType
			meta.ExtractionSource = models.SourceDescription
		}
	}

	// Step 3: organization name.
	if meta.Enriched == "" {
		if loc := extractLocationFromOrg(opp.Organization); loc != "" {
			meta.Enriched = loc
			meta.Confidence = models.ConfidenceMedium
			meta.Type = models.LocationPhysical
			meta.ExtractionSource = models.SourceInferred
		}
	}

	// Step 4: sentinel.
	if meta.Enriched == "" {
		meta.Enriched = models.SentinelNotSpecified
		meta.Confidence = models.ConfidenceNotSpecified
		meta.Type = models.LocationNotSpecified
		meta.ExtractionSource = ""
	}

	opp.LocationRaw = meta.Enriched
	if opp.Extras == nil {
		opp.Extras = map[string]any{}
	}
	opp.Extras["location_metadata"] = meta
}

func existingMetadata(opp *models.Opportunity) *models.LocationMetadata {
	if opp.Extras == nil {
		return nil
	}
	switch m := opp.Extras["location_metadata"].(type) {
	case models.LocationMetadata:
		return &m
	case *models.LocationMetadata:
		return m
	default:
		return nil
	}
}

var (
	canadaCityRe = regexp.MustCompile(`(?i)([A-Za-z]+(?:\s+[A-Za-z]+)*)[,\s]+Canada`)
	ukCityRe     = regexp.MustCompile(`(?i)([A-Za-z]+(?:\s+[A-Za-z]+)*)[,\s]+(?:UK|United Kingdom)`)
	addressAnyRe = regexp.MustCompile(`(?i)\d+\s+[\w\s]+(?:St|Street|Rd|Road|Ave|Avenue|Blvd|Boulevard|Dr|Drive)[,\s]+([A-Za-z]+(?:\s+[A-Za-z]+)*)[,\s]+([A-Za-z]{2})`)
)

// StandardizeLocation tries to render a raw location as "City, ST" (or a
// country-qualified form for international input). Returns "" when nothing
// usable could be recognized; the caller decides what to do with the raw
// value then.
func StandardizeLocation(location string) string {
	if IsOnlineLocation(location) {
		return models.SentinelOnline
	}

	location = parentheticalRe.ReplaceAllString(location, "")
	location = multiSpaceRe.ReplaceAllString(location, " ")
	location = strings.TrimSpace(location)
	lower := strings.ToLower(location)

	// Canada: "City, PR, Canada" when a province is recognizable.
	if strings.Contains(lower, "canada") {
		for province, abbrev := range CanadianProvinces {
			if strings.Contains(lower, province) ||
				strings.Contains(location, ", "+abbrev) ||
				strings.Contains(location, " "+abbrev+" ") {
				cityRe := regexp.MustCompile(`(?i)([A-Za-z]+(?:\s+[A-Za-z]+)*)[,\s]+(?:` + province + `|` + abbrev + `)`)
				if m := cityRe.FindStringSubmatch(location); m != nil {
					return titleCase(m[1]) + ", " + abbrev + ", Canada"
				}
				return abbrev + ", Canada"
			}
		}
		if m := canadaCityRe.FindStringSubmatch(location); m != nil {
			return titleCase(m[1]) + ", Canada"
		}
		return "Canada"
	}

	// UK. Word-bounded so "Milwaukee" does not read as British.
	if ukWordRe.MatchString(lower) {
		if m := ukCityRe.FindStringSubmatch(location); m != nil {
			return titleCase(m[1]) + ", United Kingdom"
		}
		return "United Kingdom"
	}

	// Other recognized countries.
	for _, country := range countries {
		switch country {
		case "united states", "usa", "canada", "uk", "united kingdom":
			continue
		}
		if strings.Contains(lower, country) {
			cityRe := regexp.MustCompile(`(?i)([A-Za-z]+(?:\s+[A-Za-z]+)*)[,\s]+` + regexp.QuoteMeta(country))
			if m := cityRe.FindStringSubmatch(location); m != nil {
				return titleCase(m[1]) + ", " + titleCase(country)
			}
			return titleCase(country)
		}
	}

	// Plain "City, State" in US/Canada shapes.
	if city, state, ok := strings.Cut(location, ","); ok {
		city = titleCase(strings.TrimSpace(city))
		state = strings.TrimSpace(state)
		if idx := strings.Index(state, ","); idx >= 0 {
			state = strings.TrimSpace(state[:idx])
		}
		state = strings.TrimSpace(zipInStateRe.ReplaceAllString(state, ""))

		if isDigits(state) {
			return city + ", " + ResolveStateCode(state)
		}
		if len(state) > 2 {
			if abbrev, ok := StateAbbrev[strings.ToLower(state)]; ok {
				state = abbrev
			} else {
				for name, abbrev := range StateAbbrev {
					if strings.Contains(strings.ToLower(state), name) {
						state = abbrev
						break
					}
				}
			}
		} else if len(state) == 2 {
			state = strings.ToUpper(state)
		}

		if city != "" && state != "" {
			return city + ", " + state
		}
	}

	// Street address anywhere in the string.
	if m := addressAnyRe.FindStringSubmatch(location); m != nil {
		return titleCase(m[1]) + ", " + strings.ToUpper(m[2])
	}

	// A lone word might be a bare state name.
	if !strings.Contains(location, " ") && len(location) > 2 {
		if abbrev, ok := StateAbbrev[strings.ToLower(location)]; ok {
			return abbrev
		}
	}

	return ""
}

var (
	zipInStateRe = regexp.MustCompile(`\s*\d{5}(?:-\d{4})?\s*`)
	ukWordRe     = regexp.MustCompile(`\b(?:uk|united kingdom)\b`)
)

type textExtraction struct {
	location   string
	confidence string
	locType    string
}

// extractLocationFromText scans free text for a location. The leading 500
// characters decide online-vs-physical; after that the strategy table runs
// in order, and a venue-keyword sweep is the last resort.
func extractLocationFromText(text string) *textExtraction {
	head := text
	if len(head) > 500 {
		head = head[:500]
	}
	if IsOnlineLocation(head) {
		return &textExtraction{
			location:   models.SentinelOnline,
			confidence: models.ConfidenceHigh,
			locType:    models.LocationOnline,
		}
	}

	for _, strat := range descriptionStrategies {
		m := strat.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		city := strings.TrimSpace(m[1])
		state := strings.TrimSpace(m[2])
		if abbrev, ok := StateAbbrev[strings.ToLower(state)]; ok {
			state = abbrev
		} else if len(state) == 2 && IsStateCode(state) {
			state = strings.ToUpper(state)
		} else {
			// Unresolvable state: reject this match, try the next strategy.
			continue
		}
		return &textExtraction{
			location:   city + ", " + state,
			confidence: models.ConfidenceMedium,
			locType:    models.LocationPhysical,
		}
	}

	for _, keyword := range venueKeywords {
		re := regexp.MustCompile(`(?i)` + keyword + `[^.]*?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2})`)
		if m := re.FindStringSubmatch(text); m != nil {
			return &textExtraction{
				location:   strings.TrimSpace(m[1]) + ", " + strings.ToUpper(m[2]),
				confidence: models.ConfidenceLow,
				locType:    models.LocationPhysical,
			}
		}
	}

	return nil
}

var orgLocationPatterns = []*regexp.Regexp{
	// "Gallery of Austin, TX"
	regexp.MustCompile(`(?:of|in)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2})`),
	// "Austin, TX Art Center"
	regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2})\s+(?i:` + strings.Join(venueKeywords, "|") + `)`),
}

// extractLocationFromOrg pulls a City, ST pair out of an organization name.
func extractLocationFromOrg(org string) string {
	if org == "" {
		return ""
	}
	for _, re := range orgLocationPatterns {
		if m := re.FindStringSubmatch(org); m != nil {
			state := strings.ToUpper(strings.TrimSpace(m[2]))
			if len(state) == 2 {
				return strings.TrimSpace(m[1]) + ", " + state
			}
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
