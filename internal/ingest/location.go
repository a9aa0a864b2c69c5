package ingest

import (
	"regexp"
	"strings"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

// onlineIndicators is the universal online/virtual vocabulary checked before
// any platform-specific handling.
var onlineIndicators = []string{"online", "virtual", "zoom", "digital"}

// NormalizeLocation cleans a raw location string using the source platform's
// known formatting quirks. It is a total function: malformed input degrades
// to a best-effort cleaned string or "", never an error.
func NormalizeLocation(raw, platform string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	lower := strings.ToLower(raw)
	for _, word := range onlineIndicators {
		if strings.Contains(lower, word) {
			return models.SentinelOnline
		}
	}

	switch platform {
	case models.PlatformCafe:
		// CaFE renders "City, <numeric state code>".
		if city, code, ok := strings.Cut(raw, ","); ok {
			return FormatCityState(city, code)
		}
		return raw
	case models.PlatformArtCall:
		// ArtCall badges carry a bare state name or abbreviation.
		if abbrev, ok := StateAbbrev[strings.ToLower(raw)]; ok {
			return abbrev
		}
		return raw
	case models.PlatformShowSubmit:
		return cleanShowSubmitLocation(raw)
	case models.PlatformArtworkArchive:
		return cleanArtworkArchiveLocation(raw)
	case models.PlatformZapplication:
		// Zapplication usually has no location at all.
		return raw
	default:
		return cleanGenericLocation(raw)
	}
}

// ShowSubmit stuffs exhibition details into the location field. These noise
// spans are stripped in order before any extraction is attempted.
var showSubmitNoise = []*regexp.Regexp{
	regexp.MustCompile(`\(.*?\)`),
	regexp.MustCompile(`(?i)Entry Fee.*`),
	regexp.MustCompile(`(?i)Eligibility.*`),
	regexp.MustCompile(`(?i)Deadline.*`),
	regexp.MustCompile(`(?i)Exhibition.*`),
	regexp.MustCompile(`(?i)gallery opens.*`),
	regexp.MustCompile(`(?i)Artists can enter.*`),
}

var (
	streetAddressRe = regexp.MustCompile(`(\d+\s+[\w\s]+(?:St|Street|Rd|Road|Ave|Avenue|Blvd|Boulevard|Dr|Drive))[,\s]+(\w+)`)
	cityStateRe     = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)[,\s]+([A-Z]{2}|[A-Z][a-z]+)`)
)

func cleanShowSubmitLocation(raw string) string {
	cleaned := raw
	for _, re := range showSubmitNoise {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	// Street address anchored: the token after the street is the city, and
	// the state (if any) trails the city.
	if m := streetAddressRe.FindStringSubmatch(cleaned); m != nil {
		city := m[2]
		afterCity := regexp.MustCompile(regexp.QuoteMeta(city) + `[,\s]+([A-Z]{2}|\w+)`)
		if sm := afterCity.FindStringSubmatch(cleaned); sm != nil {
			state := sm[1]
			if len(state) == 2 {
				return city + ", " + state
			}
			if abbrev, ok := StateAbbrev[strings.ToLower(state)]; ok {
				return city + ", " + abbrev
			}
		}
	}

	if m := cityStateRe.FindStringSubmatch(cleaned); m != nil {
		city, state := m[1], m[2]
		if len(state) == 2 {
			return city + ", " + state
		}
		if abbrev, ok := StateAbbrev[strings.ToLower(state)]; ok {
			return city + ", " + abbrev
		}
	}

	// Nothing extractable: first 50 chars of the collapsed string, or ""
	// when too little remains to mean anything.
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = truncateOnRuneBoundary(cleaned, 50)
	if len(cleaned) <= 3 {
		return ""
	}
	return cleaned
}

var (
	usSuffixRe   = regexp.MustCompile(`(?i),?\s*United States\s*$`)
	zipCodeRe    = regexp.MustCompile(`\s+\d{5}(?:-\d{4})?`)
	doubleComma  = regexp.MustCompile(`,\s*,`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// ArtworkArchive uses "City, State ZIP, United States".
func cleanArtworkArchiveLocation(raw string) string {
	loc := usSuffixRe.ReplaceAllString(raw, "")
	loc = zipCodeRe.ReplaceAllString(loc, "")
	loc = doubleComma.ReplaceAllString(loc, ",")
	loc = multiSpaceRe.ReplaceAllString(loc, " ")
	loc = strings.Trim(loc, " ,")

	if idx := strings.LastIndex(loc, ","); idx >= 0 {
		city := strings.TrimSpace(loc[:idx])
		state := strings.TrimSpace(loc[idx+1:])
		if abbrev, ok := StateAbbrev[strings.ToLower(state)]; ok {
			state = abbrev
		}
		return city + ", " + state
	}
	return loc
}

var parentheticalRe = regexp.MustCompile(`\(.*?\)`)

func cleanGenericLocation(raw string) string {
	loc := parentheticalRe.ReplaceAllString(raw, "")
	loc = multiSpaceRe.ReplaceAllString(loc, " ")
	loc = strings.TrimSpace(loc)

	if city, state, ok := strings.Cut(loc, ","); ok {
		city = strings.TrimSpace(city)
		state = strings.TrimSpace(state)
		if idx := strings.Index(state, ","); idx >= 0 {
			state = strings.TrimSpace(state[:idx])
		}
		if abbrev, ok := StateAbbrev[strings.ToLower(state)]; ok {
			state = abbrev
		} else if len(state) == 2 {
			state = strings.ToUpper(state)
		}
		return city + ", " + state
	}
	return loc
}

// SplitCityState parses an already-normalized "City, ST" display string into
// its structured parts. Used by the record builder; unmatched strings yield
// empty parts.
func SplitCityState(display string) (city, state string) {
	display = strings.TrimSpace(display)
	if display == "" || display == models.SentinelOnline || display == models.SentinelNotSpecified {
		return "", ""
	}
	m := exactCityStateRe.FindStringSubmatch(display)
	if m == nil {
		m = cityStateNameRe.FindStringSubmatch(display)
	}
	if m == nil {
		return "", ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

var (
	exactCityStateRe = regexp.MustCompile(`^([^,]+),\s*([A-Z]{2})$`)
	cityStateNameRe  = regexp.MustCompile(`^([^,]+),\s*([A-Za-z\s]+)$`)
)
