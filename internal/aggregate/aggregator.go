package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Third-South-Capital/callscrape/internal/db"
	"github.com/Third-South-Capital/callscrape/internal/ingest"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

// DuplicateRecord documents one cross-platform collision found during
// aggregation.
type DuplicateRecord struct {
	Title     string   `json:"title"`
	Platforms []string `json:"platforms"`
	Reason    string   `json:"reason"`
	Score     float64  `json:"score,omitempty"`
}

// DataQuality counts how many records carry each of the fields that matter
// most downstream.
type DataQuality struct {
	WithDeadline     int `json:"with_deadline"`
	WithOrganization int `json:"with_organization"`
	WithLocation     int `json:"with_location"`
	WithFee          int `json:"with_fee"`
}

// Stats summarizes one aggregation pass.
type Stats struct {
	TotalOpportunities int            `json:"total_opportunities"`
	DuplicatesFound    int            `json:"duplicates_found"`
	ScrapedAt          string         `json:"scraped_at"`
	ByPlatform         map[string]int `json:"by_platform"`
	DataQuality        DataQuality    `json:"data_quality"`
}

// SyncResult counts the outcome of pushing aggregated records to a store.
type SyncResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Aggregator combines per-platform scrape batches, collapses cross-platform
// duplicates, and syncs the survivors to a store.
type Aggregator struct {
	opportunities []*models.Opportunity
	duplicates    []DuplicateRecord

	now func() time.Time
}

func New() *Aggregator {
	return &Aggregator{now: time.Now}
}

// Add normalizes a platform's raw batch and folds it into the collection.
// Heuristic location enrichment runs here so later stages see clean
// city/state fields. Description scanning stays off for zapplication, whose
// descriptions routinely name every city on a fair circuit.
func (a *Aggregator) Add(platform string, batch []ingest.RawOpportunity) {
	log.Printf("aggregate: adding %d records from %s", len(batch), platform)
	for _, raw := range batch {
		if raw.Platform == "" {
			raw.Platform = platform
		}
		opp := ingest.FromRaw(raw)
		ingest.EnrichLocation(&opp, platform != models.PlatformZapplication)
		a.opportunities = append(a.opportunities, &opp)
	}
}

// Deduplicate collapses records that refer to the same call across
// platforms. The first occurrence survives; later ones merge their
// non-empty fields into it.
func (a *Aggregator) Deduplicate() {
	var unique []*models.Opportunity

	for _, opp := range a.opportunities {
		matches := ingest.FindDuplicates(opp, unique)
		if len(matches) == 0 {
			unique = append(unique, opp)
			continue
		}

		match := matches[0]
		ingest.MergeInto(match.Existing, opp)
		a.duplicates = append(a.duplicates, DuplicateRecord{
			Title:     opp.Title,
			Platforms: []string{match.Existing.SourcePlatform, opp.SourcePlatform},
			Reason:    string(match.Reason),
			Score:     match.Score,
		})
	}

	a.opportunities = unique
	if len(a.duplicates) > 0 {
		log.Printf("aggregate: collapsed %d duplicate records", len(a.duplicates))
	}
}

// Opportunities returns the current collection.
func (a *Aggregator) Opportunities() []*models.Opportunity {
	return a.opportunities
}

// Duplicates returns the collisions recorded by Deduplicate.
func (a *Aggregator) Duplicates() []DuplicateRecord {
	return a.duplicates
}

// Statistics computes per-platform counts and field coverage for the
// current collection.
func (a *Aggregator) Statistics() *Stats {
	stats := &Stats{
		TotalOpportunities: len(a.opportunities),
		DuplicatesFound:    len(a.duplicates),
		ScrapedAt:          a.now().Format(time.RFC3339),
		ByPlatform:         map[string]int{},
	}

	for _, opp := range a.opportunities {
		stats.ByPlatform[opp.SourcePlatform]++
		if opp.DeadlineRaw != "" {
			stats.DataQuality.WithDeadline++
		}
		if opp.Organization != "" {
			stats.DataQuality.WithOrganization++
		}
		if opp.LocationRaw != "" {
			stats.DataQuality.WithLocation++
		}
		if opp.FeeRaw != "" {
			stats.DataQuality.WithFee++
		}
	}
	return stats
}

// SaveResults writes the collection, the duplicates report, and the stats
// summary as timestamped JSON files under dir. It returns the path of the
// main opportunities file.
func (a *Aggregator) SaveResults(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	stamp := a.now().Format("20060102_150405")

	mainFile := filepath.Join(dir, "opportunities_"+stamp+".json")
	if err := writeJSON(mainFile, a.opportunities); err != nil {
		return "", err
	}
	log.Printf("aggregate: saved %d records to %s", len(a.opportunities), mainFile)

	if len(a.duplicates) > 0 {
		if err := writeJSON(filepath.Join(dir, "duplicates_"+stamp+".json"), a.duplicates); err != nil {
			return "", err
		}
	}
	if err := writeJSON(filepath.Join(dir, "stats_"+stamp+".json"), a.Statistics()); err != nil {
		return "", err
	}
	return mainFile, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Sync upserts every record into the store. Records without a title are
// skipped; individual failures are counted and logged, not fatal.
func (a *Aggregator) Sync(ctx context.Context, store db.Store) (*SyncResult, error) {
	result := &SyncResult{}

	for _, opp := range a.opportunities {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if opp.Title == "" {
			result.Skipped++
			continue
		}
		inserted, err := store.Upsert(ctx, opp)
		if err != nil {
			log.Printf("aggregate: upsert %q failed: %v", opp.Title, err)
			result.Errors++
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	log.Printf("aggregate: sync complete: %d inserted, %d updated, %d skipped, %d errors",
		result.Inserted, result.Updated, result.Skipped, result.Errors)
	return result, nil
}
