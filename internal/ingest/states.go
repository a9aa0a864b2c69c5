package ingest

import "strings"

// StateInfo pairs a full state name with its two-letter code.
type StateInfo struct {
	Name   string
	Abbrev string
}

// StateCodeMap maps CaFE's numeric state codes to state names. The platform
// encodes US states as integers in roughly alphabetical order; codes '18'
// and '19' both map to Louisiana in the data we have observed, and '52' is
// reserved for international listings. The duplicate is preserved as-is:
// treat it as ground truth about the upstream encoding, not something to fix
// here.
var StateCodeMap = map[string]StateInfo{
	"1":  {"Alabama", "AL"},
	"2":  {"Alaska", "AK"},
	"3":  {"Arizona", "AZ"},
	"4":  {"Arkansas", "AR"},
	"5":  {"California", "CA"},
	"6":  {"Colorado", "CO"},
	"7":  {"Connecticut", "CT"},
	"8":  {"Delaware", "DE"},
	"9":  {"Florida", "FL"},
	"10": {"Georgia", "GA"},
	"11": {"Hawaii", "HI"},
	"12": {"Idaho", "ID"},
	"13": {"Illinois", "IL"},
	"14": {"Indiana", "IN"},
	"15": {"Iowa", "IA"},
	"16": {"Kansas", "KS"},
	"17": {"Kentucky", "KY"},
	"18": {"Louisiana", "LA"},
	"19": {"Louisiana", "LA"},
	"20": {"Maine", "ME"},
	"21": {"Maryland", "MD"},
	"22": {"Massachusetts", "MA"},
	"23": {"Michigan", "MI"},
	"24": {"Minnesota", "MN"},
	"25": {"Mississippi", "MS"},
	"26": {"Missouri", "MO"},
	"27": {"Montana", "MT"},
	"28": {"Nebraska", "NE"},
	"29": {"Nevada", "NV"},
	"30": {"New Hampshire", "NH"},
	"31": {"New Jersey", "NJ"},
	"32": {"New Mexico", "NM"},
	"33": {"New York", "NY"},
	"34": {"North Carolina", "NC"},
	"35": {"North Dakota", "ND"},
	"36": {"Ohio", "OH"},
	"37": {"Oklahoma", "OK"},
	"38": {"Oregon", "OR"},
	"39": {"Pennsylvania", "PA"},
	"40": {"Rhode Island", "RI"},
	"41": {"South Carolina", "SC"},
	"42": {"South Dakota", "SD"},
	"43": {"Tennessee", "TN"},
	"44": {"Texas", "TX"},
	"45": {"Utah", "UT"},
	"46": {"Vermont", "VT"},
	"47": {"Virginia", "VA"},
	"48": {"Washington", "WA"},
	"49": {"West Virginia", "WV"},
	"50": {"Wisconsin", "WI"},
	"51": {"Wyoming", "WY"},
	"52": {"International", "INTL"},
}

// StateAbbrev maps lowercase full state/province names to two-letter codes.
var StateAbbrev = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
	// DC and territories
	"district of columbia": "DC", "washington dc": "DC", "washington d.c.": "DC",
	"puerto rico": "PR", "virgin islands": "VI", "guam": "GU",
	// Canadian provinces show up in US-shaped fields often enough to belong here
	"ontario": "ON", "quebec": "QC", "british columbia": "BC", "alberta": "AB",
	"manitoba": "MB", "saskatchewan": "SK", "nova scotia": "NS",
	"new brunswick": "NB", "newfoundland": "NL", "prince edward island": "PE",
}

// CanadianProvinces maps lowercase province/territory names to their codes.
var CanadianProvinces = map[string]string{
	"ontario": "ON", "quebec": "QC", "british columbia": "BC", "alberta": "AB",
	"manitoba": "MB", "saskatchewan": "SK", "nova scotia": "NS",
	"new brunswick": "NB", "newfoundland": "NL", "prince edward island": "PE",
	"northwest territories": "NT", "yukon": "YT", "nunavut": "NU",
}

// validStateCodes is the reverse index used to validate two-letter matches
// pulled out of free text.
var validStateCodes = func() map[string]bool {
	set := make(map[string]bool, len(StateAbbrev))
	for _, code := range StateAbbrev {
		set[code] = true
	}
	return set
}()

// ResolveStateCode maps a CaFE numeric state code to its two-letter
// abbreviation. Unknown codes pass through unchanged.
func ResolveStateCode(code string) string {
	code = strings.TrimSpace(code)
	if info, ok := StateCodeMap[code]; ok {
		return info.Abbrev
	}
	return code
}

// ResolveStateName maps a full state name (any case) to its abbreviation.
// Two-letter input is uppercased; anything else passes through unchanged.
func ResolveStateName(name string) string {
	name = strings.TrimSpace(name)
	if abbrev, ok := StateAbbrev[strings.ToLower(name)]; ok {
		return abbrev
	}
	if len(name) == 2 {
		return strings.ToUpper(name)
	}
	return name
}

// IsStateCode reports whether s is a recognized two-letter state or
// province code.
func IsStateCode(s string) bool {
	return validStateCodes[strings.ToUpper(strings.TrimSpace(s))]
}

// isDigits reports whether s is non-empty and all ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatCityState renders "City, ST" degrading gracefully when either side
// is missing. A numeric state goes through the CaFE code table.
func FormatCityState(city, state string) string {
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	if isDigits(state) {
		state = ResolveStateCode(state)
	}
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}
