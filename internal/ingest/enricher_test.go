package ingest

import (
	"testing"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

func metadataOf(t *testing.T, opp *models.Opportunity) models.LocationMetadata {
	t.Helper()
	meta, ok := opp.Extras["location_metadata"].(models.LocationMetadata)
	if !ok {
		t.Fatalf("missing location metadata, extras = %v", opp.Extras)
	}
	return meta
}

func TestEnrichLocationFromField(t *testing.T) {
	opp := &models.Opportunity{LocationRaw: "Tucson, Arizona"}
	EnrichLocation(opp, true)

	meta := metadataOf(t, opp)
	if opp.LocationRaw != "Tucson, AZ" {
		t.Errorf("LocationRaw = %q, want %q", opp.LocationRaw, "Tucson, AZ")
	}
	if meta.Confidence != models.ConfidenceHigh || meta.ExtractionSource != models.SourceField {
		t.Errorf("field extraction should be high confidence from field, got %+v", meta)
	}
	if meta.Original != "Tucson, Arizona" {
		t.Errorf("original value must be preserved, got %q", meta.Original)
	}
}

func TestEnrichLocationOnlineField(t *testing.T) {
	opp := &models.Opportunity{LocationRaw: "Virtual exhibition via Zoom"}
	EnrichLocation(opp, true)

	meta := metadataOf(t, opp)
	if opp.LocationRaw != models.SentinelOnline {
		t.Errorf("LocationRaw = %q, want %q", opp.LocationRaw, models.SentinelOnline)
	}
	if meta.Type != models.LocationOnline || meta.Confidence != models.ConfidenceHigh {
		t.Errorf("online field should be high/online, got %+v", meta)
	}
}

func TestEnrichLocationFromDescription(t *testing.T) {
	opp := &models.Opportunity{
		LocationRaw: "Email",
		Description: "All accepted works will appear in an exhibition held in Shrewsbury, NJ this fall.",
	}
	EnrichLocation(opp, true)

	meta := metadataOf(t, opp)
	if opp.LocationRaw != "Shrewsbury, NJ" {
		t.Errorf("LocationRaw = %q, want %q", opp.LocationRaw, "Shrewsbury, NJ")
	}
	if meta.Confidence != models.ConfidenceMedium {
		t.Errorf("description extraction confidence = %q, want medium", meta.Confidence)
	}
	if meta.ExtractionSource != models.SourceDescription {
		t.Errorf("extraction source = %q, want description", meta.ExtractionSource)
	}
}

func TestEnrichLocationDescriptionScanDisabled(t *testing.T) {
	opp := &models.Opportunity{
		LocationRaw: "Email",
		Description: "The exhibition will be held in Shrewsbury, NJ this fall.",
	}
	EnrichLocation(opp, false)

	if opp.LocationRaw != models.SentinelNotSpecified {
		t.Errorf("with scanning disabled LocationRaw = %q, want %q",
			opp.LocationRaw, models.SentinelNotSpecified)
	}
}

func TestEnrichLocationFromOrganization(t *testing.T) {
	opp := &models.Opportunity{
		Organization: "Art League of Alexandria, VA",
	}
	EnrichLocation(opp, true)

	meta := metadataOf(t, opp)
	if opp.LocationRaw != "Alexandria, VA" {
		t.Errorf("LocationRaw = %q, want %q", opp.LocationRaw, "Alexandria, VA")
	}
	if meta.Confidence != models.ConfidenceMedium || meta.ExtractionSource != models.SourceInferred {
		t.Errorf("org inference should be medium/inferred, got %+v", meta)
	}
}

func TestEnrichLocationNotSpecified(t *testing.T) {
	opp := &models.Opportunity{LocationRaw: "Email"}
	EnrichLocation(opp, true)

	meta := metadataOf(t, opp)
	if opp.LocationRaw != models.SentinelNotSpecified {
		t.Errorf("LocationRaw = %q, want %q", opp.LocationRaw, models.SentinelNotSpecified)
	}
	if meta.Confidence != models.ConfidenceNotSpecified || meta.Type != models.LocationNotSpecified {
		t.Errorf("unresolvable location should carry not_specified markers, got %+v", meta)
	}
	if meta.Original != "Email" {
		t.Errorf("original junk value must survive in metadata, got %q", meta.Original)
	}
}

// Running enrichment twice over a resolved sentinel must not move anything.
func TestEnrichLocationIdempotent(t *testing.T) {
	for _, raw := range []string{"Online", ""} {
		opp := &models.Opportunity{LocationRaw: raw}
		EnrichLocation(opp, true)
		first := opp.LocationRaw
		firstMeta := metadataOf(t, opp)

		EnrichLocation(opp, true)
		if opp.LocationRaw != first {
			t.Errorf("second pass moved LocationRaw from %q to %q", first, opp.LocationRaw)
		}
		secondMeta := metadataOf(t, opp)
		if secondMeta != firstMeta {
			t.Errorf("second pass rewrote metadata: %+v vs %+v", firstMeta, secondMeta)
		}
	}
}

func TestStandardizeLocation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Tucson, Arizona", "Tucson, AZ"},
		{"tucson, az", "Tucson, AZ"},
		{"Denver, 6", "Denver, CO"},
		{"Portland, OR 97201", "Portland, OR"},
		{"Toronto, Ontario, Canada", "Toronto, ON, Canada"},
		{"London, United Kingdom", "London, United Kingdom"},
		{"Berlin, Germany", "Berlin, Germany"},
		{"Texas", "TX"},
		{"gibberish", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StandardizeLocation(tt.input); got != tt.want {
			t.Errorf("StandardizeLocation(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// "Milwaukee" contains the letters "uk"; it must not standardize as Britain.
func TestStandardizeLocationMilwaukee(t *testing.T) {
	if got := StandardizeLocation("Milwaukee, Wisconsin"); got != "Milwaukee, WI" {
		t.Errorf("StandardizeLocation(Milwaukee, Wisconsin) = %q, want %q", got, "Milwaukee, WI")
	}
}

func TestIsOnlineLocation(t *testing.T) {
	for _, online := range []string{"Online", "virtual gallery", "webinar series", "streaming event"} {
		if !IsOnlineLocation(online) {
			t.Errorf("IsOnlineLocation(%q) = false, want true", online)
		}
	}
	for _, physical := range []string{"Tucson, AZ", "Main Street Gallery", ""} {
		if IsOnlineLocation(physical) {
			t.Errorf("IsOnlineLocation(%q) = true, want false", physical)
		}
	}
}
