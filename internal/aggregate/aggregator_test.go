package aggregate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Third-South-Capital/callscrape/internal/db"
	"github.com/Third-South-Capital/callscrape/internal/ingest"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

func newTestAggregator() *Aggregator {
	a := New()
	a.now = func() time.Time { return time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC) }
	return a
}

func TestAddNormalizesRawBatches(t *testing.T) {
	a := newTestAggregator()
	a.Add(models.PlatformCafe, []ingest.RawOpportunity{{
		Title:    "Desert Light Annual",
		URL:      "https://artist.callforentry.org/festivals_unique_info.php?ID=101",
		Location: "Tucson, 3",
		Fee:      "15.00",
		Deadline: "March 15, 2027",
	}})

	opps := a.Opportunities()
	if len(opps) != 1 {
		t.Fatalf("len = %d, want 1", len(opps))
	}
	opp := opps[0]
	if opp.SourcePlatform != models.PlatformCafe {
		t.Errorf("platform = %q", opp.SourcePlatform)
	}
	if opp.FeeRaw != "$15" {
		t.Errorf("FeeRaw = %q, want $15", opp.FeeRaw)
	}
	if opp.LocationCity != "Tucson" || opp.LocationState != "AZ" {
		t.Errorf("city/state = %q/%q, want Tucson/AZ", opp.LocationCity, opp.LocationState)
	}
	if opp.DeadlineParsed == nil {
		t.Error("deadline not parsed")
	}
}

func TestDeduplicateMergesAcrossPlatforms(t *testing.T) {
	a := newTestAggregator()
	a.Add(models.PlatformShowSubmit, []ingest.RawOpportunity{{
		Title: "National Abstract Exhibition",
		URL:   "https://showsubmit.com/show/national-abstract",
	}})
	a.Add(models.PlatformArtCall, []ingest.RawOpportunity{{
		Title:        "National Abstract Exhibition",
		Organization: "Riverside Art Center",
		URL:          "https://national-abstract.artcall.org",
		Fee:          "35",
	}})
	a.Add(models.PlatformCafe, []ingest.RawOpportunity{{
		Title: "Completely Different Show",
		URL:   "https://artist.callforentry.org/festivals_unique_info.php?ID=7",
	}})

	a.Deduplicate()

	opps := a.Opportunities()
	if len(opps) != 2 {
		t.Fatalf("survivors = %d, want 2", len(opps))
	}

	dups := a.Duplicates()
	if len(dups) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(dups))
	}
	if dups[0].Reason != string(ingest.DuplicateTitle) {
		t.Errorf("reason = %q, want title", dups[0].Reason)
	}

	// The first occurrence survives and absorbs the later record's fields.
	merged := opps[0]
	if merged.SourcePlatform != models.PlatformShowSubmit {
		t.Errorf("survivor platform = %q", merged.SourcePlatform)
	}
	if merged.Organization != "Riverside Art Center" {
		t.Errorf("merged organization = %q", merged.Organization)
	}
	if merged.FeeRaw != "$35" {
		t.Errorf("merged fee = %q", merged.FeeRaw)
	}
	if len(merged.AlternateURLs) != 1 || merged.AlternateURLs[0] != "https://national-abstract.artcall.org" {
		t.Errorf("alternate URLs = %v", merged.AlternateURLs)
	}
}

func TestStatistics(t *testing.T) {
	a := newTestAggregator()
	a.Add(models.PlatformCafe, []ingest.RawOpportunity{
		{Title: "With Everything", Organization: "Org", Location: "Austin, 44", Fee: "20", Deadline: "1/1/2027", URL: "https://example.org/a"},
		{Title: "Bare Minimum", URL: "https://example.org/b"},
	})
	a.Add(models.PlatformArtCall, []ingest.RawOpportunity{
		{Title: "Third Call", Organization: "Another Org", URL: "https://example.org/c"},
	})

	stats := a.Statistics()
	if stats.TotalOpportunities != 3 {
		t.Errorf("total = %d", stats.TotalOpportunities)
	}
	if stats.ByPlatform[models.PlatformCafe] != 2 || stats.ByPlatform[models.PlatformArtCall] != 1 {
		t.Errorf("by_platform = %v", stats.ByPlatform)
	}
	if stats.DataQuality.WithOrganization != 2 {
		t.Errorf("with_organization = %d, want 2", stats.DataQuality.WithOrganization)
	}
	if stats.DataQuality.WithDeadline != 1 || stats.DataQuality.WithFee != 1 {
		t.Errorf("quality = %+v", stats.DataQuality)
	}
	if stats.ScrapedAt != "2026-08-29T14:30:00Z" {
		t.Errorf("scraped_at = %q", stats.ScrapedAt)
	}
}

func TestSaveResults(t *testing.T) {
	dir := t.TempDir()
	a := newTestAggregator()
	a.Add(models.PlatformShowSubmit, []ingest.RawOpportunity{
		{Title: "First", URL: "https://showsubmit.com/show/first"},
		{Title: "First", URL: "https://showsubmit.com/show/first"},
	})
	a.Deduplicate()

	mainFile, err := a.SaveResults(dir)
	if err != nil {
		t.Fatalf("SaveResults: %v", err)
	}
	if filepath.Base(mainFile) != "opportunities_20260829_143000.json" {
		t.Errorf("main file = %s", mainFile)
	}

	data, err := os.ReadFile(mainFile)
	if err != nil {
		t.Fatalf("read main file: %v", err)
	}
	var saved []models.Opportunity
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("parse main file: %v", err)
	}
	if len(saved) != 1 {
		t.Errorf("saved %d records, want 1", len(saved))
	}

	for _, name := range []string{"duplicates_20260829_143000.json", "stats_20260829_143000.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestSyncCountsOutcomes(t *testing.T) {
	store := db.NewNoopStore()
	a := newTestAggregator()
	a.Add(models.PlatformCafe, []ingest.RawOpportunity{
		{Title: "Sync Me", URL: "https://example.org/sync"},
		{URL: "https://example.org/untitled"}, // no title, skipped
	})

	result, err := a.Sync(context.Background(), store)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Inserted != 1 || result.Skipped != 1 || result.Errors != 0 {
		t.Errorf("result = %+v", result)
	}

	// A second pass hits the same rows, so everything counts as updated.
	result, err = a.Sync(context.Background(), store)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if result.Updated != 1 || result.Inserted != 0 {
		t.Errorf("second result = %+v", result)
	}
}
