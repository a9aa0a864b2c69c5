package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

func TestFromRawDeterministicID(t *testing.T) {
	raw := RawOpportunity{
		Title:    "Winter Juried Show",
		URL:      "https://artcall.example.org/winter",
		Platform: models.PlatformArtCall,
	}
	a := FromRaw(raw)
	b := FromRaw(raw)
	if a.ID != b.ID {
		t.Errorf("same raw record must map to the same ID: %s vs %s", a.ID, b.ID)
	}

	other := raw
	other.URL = "https://artcall.example.org/spring"
	if c := FromRaw(other); c.ID == a.ID {
		t.Errorf("different URLs must map to different IDs")
	}

	crossPlatform := raw
	crossPlatform.Platform = models.PlatformCafe
	if c := FromRaw(crossPlatform); c.ID == a.ID {
		t.Errorf("same key on a different platform must map to a different ID")
	}
}

func TestFromRawKeyFallback(t *testing.T) {
	// No URL: the platform-native ID anchors the record; failing that,
	// the title does.
	byID := FromRaw(RawOpportunity{Platform: models.PlatformCafe, PlatformID: "14551", Title: "A"})
	byID2 := FromRaw(RawOpportunity{Platform: models.PlatformCafe, PlatformID: "14551", Title: "B"})
	if byID.ID != byID2.ID {
		t.Errorf("platform ID should win over title when URL is absent")
	}

	byTitle := FromRaw(RawOpportunity{Platform: models.PlatformCafe, Title: "Annual Open"})
	want := models.DeterministicID(models.PlatformCafe, "Annual Open")
	if byTitle.ID != want {
		t.Errorf("title fallback ID = %s, want %s", byTitle.ID, want)
	}
}

func TestFromRawNormalizes(t *testing.T) {
	raw := RawOpportunity{
		Title:    "  Spring   Salon  ",
		URL:      "https://cafe.example.org/1",
		Platform: models.PlatformCafe,
		Location: "Tucson, 3",
		Fee:      "15.00",
		Deadline: "2026-09-15",
	}
	opp := FromRaw(raw)

	if opp.Title != "Spring Salon" {
		t.Errorf("title = %q, want whitespace collapsed", opp.Title)
	}
	if opp.LocationRaw != "Tucson, AZ" {
		t.Errorf("location = %q, want %q", opp.LocationRaw, "Tucson, AZ")
	}
	if opp.LocationCity != "Tucson" || opp.LocationState != "AZ" {
		t.Errorf("city/state = %q/%q, want Tucson/AZ", opp.LocationCity, opp.LocationState)
	}
	if opp.FeeRaw != "$15" {
		t.Errorf("fee = %q, want $15", opp.FeeRaw)
	}
	if opp.FeeAmount == nil || *opp.FeeAmount != 15 {
		t.Errorf("fee amount = %v, want 15", opp.FeeAmount)
	}
	if opp.FeeIsFree {
		t.Errorf("a $15 fee is not free")
	}
	if opp.DeadlineParsed == nil || opp.DeadlineParsed.Year() != 2026 {
		t.Errorf("deadline parsed = %v, want September 2026", opp.DeadlineParsed)
	}
}

func TestFromRawActiveFlag(t *testing.T) {
	past := FromRaw(RawOpportunity{
		Title: "Old Call", URL: "https://x.example.org/old",
		Platform: models.PlatformCafe, Deadline: "2020-01-01",
	})
	if past.IsActive {
		t.Errorf("a call whose deadline passed must be inactive")
	}

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	upcoming := FromRaw(RawOpportunity{
		Title: "New Call", URL: "https://x.example.org/new",
		Platform: models.PlatformCafe, Deadline: future,
	})
	if !upcoming.IsActive {
		t.Errorf("a call with a future deadline must be active")
	}

	rolling := FromRaw(RawOpportunity{
		Title: "Rolling Call", URL: "https://x.example.org/rolling",
		Platform: models.PlatformCafe, Deadline: "Ongoing",
	})
	if !rolling.IsActive {
		t.Errorf("an unparseable deadline means ongoing, so the call stays active")
	}
	if rolling.DeadlineRaw != "Ongoing" {
		t.Errorf("raw deadline text must survive, got %q", rolling.DeadlineRaw)
	}
}

func TestFromRawDescriptionSanitized(t *testing.T) {
	raw := RawOpportunity{
		Title: "T", URL: "https://x.example.org/1", Platform: models.PlatformCafe,
		Description: "<p>Open to  <b>all artists</b></p>",
	}
	opp := FromRaw(raw)
	if opp.Description != "Open to all artists" {
		t.Errorf("description = %q, want markup stripped", opp.Description)
	}

	long := RawOpportunity{
		Title: "T2", URL: "https://x.example.org/2", Platform: models.PlatformCafe,
		Description: strings.Repeat("a", 6001),
	}
	if got := FromRaw(long); len(got.Description) > 5000 {
		t.Errorf("description length = %d, want capped at 5000", len(got.Description))
	}
}

func TestFromRawExtras(t *testing.T) {
	raw := RawOpportunity{
		Title: "T", URL: "https://x.example.org/1", Platform: models.PlatformCafe,
		PlatformID: "9921",
		Extra:      map[string]any{"event_type": "festival"},
	}
	opp := FromRaw(raw)
	if opp.Extras["platform_id"] != "9921" {
		t.Errorf("platform ID should land in extras, got %v", opp.Extras)
	}
	if opp.Extras["event_type"] != "festival" {
		t.Errorf("unmapped fields should land in extras, got %v", opp.Extras)
	}
}
