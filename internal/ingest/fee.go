package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

var freeFeeForms = map[string]bool{
	"free":          true,
	"free to enter": true,
	"0":             true,
	"0.00":          true,
	"$0":            true,
	"$0.00":         true,
}

var nonNumericFee = regexp.MustCompile(`[^\d.]`)

// NormalizeFee standardizes fee text to "$N", "$N-$M", or "Free".
// It never fails: text with no numeric content comes back unchanged.
//
//	"15.00"        -> "$15"
//	"15.00 - 22.50" -> "$15-$22.50"
//	"Free to Enter" -> "Free"
//	"$0.00"        -> "Free"
//	"abc"          -> "abc"
func NormalizeFee(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	lower := strings.ToLower(text)
	if freeFeeForms[lower] {
		return "Free"
	}
	if strings.Contains(lower, "no fee") {
		return "Free"
	}

	// Ranges like "15.00 - 22.50" or "15 to 25". If either side fails to
	// normalize, fall through and treat the whole string as a single value.
	if sep := rangeSeparator(text); sep != "" {
		parts := strings.SplitN(text, sep, 2)
		if len(parts) == 2 {
			lo := normalizeSingleFee(parts[0])
			hi := normalizeSingleFee(parts[1])
			if lo != "" && hi != "" && strings.HasPrefix(lo, "$") && strings.HasPrefix(hi, "$") {
				return lo + "-" + hi
			}
		}
	}

	return normalizeSingleFee(text)
}

func rangeSeparator(text string) string {
	if strings.Contains(text, " - ") {
		return " - "
	}
	if idx := strings.Index(strings.ToLower(text), " to "); idx >= 0 {
		return text[idx : idx+4]
	}
	return ""
}

// normalizeSingleFee renders one fee value as "$N". Integral values drop
// the decimals; anything else keeps two digits of cents.
func normalizeSingleFee(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	numeric := nonNumericFee.ReplaceAllString(text, "")
	if numeric == "" {
		return text
	}

	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return text
	}

	if value == 0 {
		return "Free"
	}
	if value == float64(int64(value)) {
		return "$" + strconv.FormatInt(int64(value), 10)
	}
	return "$" + strconv.FormatFloat(value, 'f', 2, 64)
}

// ParseFee extracts the structured fee fields from raw fee text.
// Returns the numeric amount (nil when unparseable) and the free flag.
func ParseFee(raw string) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	lower := strings.ToLower(raw)
	if strings.Contains(lower, "free") || raw == "0" || raw == "$0" {
		zero := 0.0
		return &zero, true
	}

	m := feeAmountRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, false
	}
	if value == 0 {
		return &value, true
	}
	return &value, false
}

var feeAmountRe = regexp.MustCompile(`\$?\s*(\d+(?:\.\d{2})?)`)
