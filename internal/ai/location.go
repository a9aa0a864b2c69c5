package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// LocationRequest carries everything the model may use as a hint.
type LocationRequest struct {
	Title        string
	Organization string
	LocationRaw  string
	URL          string
	Description  string
}

// LocationExtraction is the model's answer. All fields optional; the caller
// gates acceptance on Confidence.
type LocationExtraction struct {
	Venue      string `json:"venue"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	IsOnline   bool   `json:"is_online"`
	Confidence string `json:"confidence"` // high/medium/low
}

const maxPromptDescription = 500

// ExtractLocation asks the oracle for a structured location. A nil result
// with nil error means the model answered but found nothing usable.
func ExtractLocation(ctx context.Context, oracle Oracle, req LocationRequest) (*LocationExtraction, error) {
	prompt := buildLocationPrompt(req)

	raw, err := oracle.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("location extraction: %w", err)
	}

	return ParseLocationResponse(raw)
}

func buildLocationPrompt(req LocationRequest) string {
	org := req.Organization
	if org == "" {
		org = "Unknown"
	}
	desc := req.Description
	if len(desc) > maxPromptDescription {
		desc = desc[:maxPromptDescription]
	}

	var urlHint string
	if req.URL != "" {
		urlHint = "URL: " + req.URL + "\n"
	}

	return fmt.Sprintf(`Extract the physical location from this art opportunity information.

Title: %s
Organization: %s
Current Location Field: %s
%sDescription or Context: %s

Look for:
- Street addresses (e.g., "620 Broad St.")
- City names and states (e.g., "Shrewsbury, NJ")
- Venue names (e.g., "Guild of Creative Art")
- Delivery/shipping locations
- Exhibition venues

Return a JSON object with these fields (use null if not found):
{
    "venue": "venue or organization name",
    "address": "street address if mentioned",
    "city": "city name",
    "state": "state abbreviation (2 letters)",
    "country": "country if not USA",
    "is_online": true/false,
    "confidence": "high/medium/low"
}

If location is genuinely online/virtual, set is_online=true.
If no location found, return null.
Only return the JSON, no other text.`, req.Title, org, req.LocationRaw, urlHint, desc)
}

// ParseLocationResponse tolerates the usual model quirks: code fences,
// surrounding prose, a literal "null" for no answer.
func ParseLocationResponse(raw string) (*LocationExtraction, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" || strings.EqualFold(cleaned, "null") {
		return nil, nil
	}

	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if strings.EqualFold(cleaned, "null") {
		return nil, nil
	}

	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	var data LocationExtraction
	if err := unmarshalLoose(cleaned, &data); err != nil {
		return nil, fmt.Errorf("unparseable location response: %w", err)
	}
	return &data, nil
}

// unmarshalLoose decodes the response tolerating "null" strings and
// booleans quoted as strings, both common model slips.
func unmarshalLoose(s string, out *LocationExtraction) error {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return err
	}
	out.Venue = stringField(m, "venue")
	out.Address = stringField(m, "address")
	out.City = stringField(m, "city")
	out.State = stringField(m, "state")
	out.Country = stringField(m, "country")
	out.Confidence = strings.ToLower(stringField(m, "confidence"))
	switch v := m["is_online"].(type) {
	case bool:
		out.IsOnline = v
	case string:
		out.IsOnline = strings.EqualFold(v, "true")
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key].(string)
	if !ok || strings.EqualFold(v, "null") {
		return ""
	}
	return strings.TrimSpace(v)
}

// extractFirstJSONObject finds the first outermost balanced {...}
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
