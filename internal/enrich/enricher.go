package enrich

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Third-South-Capital/callscrape/internal/ai"
	"github.com/Third-South-Capital/callscrape/internal/db"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

// defaultBatchSize caps how many oracle calls one run may make.
const defaultBatchSize = 20

// badLocationIndicators mark a location field as junk worth re-resolving.
// An empty field counts too, but only when exactly empty.
var badLocationIndicators = []string{"email", "email:", "online", "n/a", "na", "unknown"}

// DeadlineChange records a deadline that moved between runs.
type DeadlineChange struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Report summarizes one enrichment run.
type Report struct {
	Total           int              `json:"total"`
	AlreadyEnriched int              `json:"already_enriched"`
	Candidates      int              `json:"candidates"`
	Enriched        int              `json:"enriched"`
	Rejected        int              `json:"rejected"`
	Errors          int              `json:"errors"`
	DeadlineChanges []DeadlineChange `json:"deadline_changes"`
}

// Enricher resolves missing locations through an LLM oracle, memoizing work
// in a Log so a record is only ever submitted once.
type Enricher struct {
	Store     db.Store
	Oracle    ai.Oracle
	Log       *Log
	BatchSize int
	CallDelay time.Duration

	now func() time.Time
}

func NewEnricher(store db.Store, oracle ai.Oracle, enrichLog *Log) *Enricher {
	return &Enricher{
		Store:     store,
		Oracle:    oracle,
		Log:       enrichLog,
		BatchSize: defaultBatchSize,
		CallDelay: 300 * time.Millisecond,
		now:       time.Now,
	}
}

// NeedsEnrichment reports whether opp should be submitted to the oracle.
// Records already stamped in the log are never resubmitted.
func (e *Enricher) NeedsEnrichment(opp *models.Opportunity) bool {
	if e.Log.Seen(opp.CompositeKey()) {
		return false
	}

	location := strings.ToLower(opp.LocationRaw)
	if location == "" {
		return opp.LocationCity == "" && opp.LocationState == ""
	}
	for _, indicator := range badLocationIndicators {
		if strings.Contains(location, indicator) {
			return true
		}
	}
	if opp.LocationCity == "" && opp.LocationState == "" && opp.LocationRaw != "" {
		return true
	}
	return false
}

// Run scans stored opportunities, enriches up to BatchSize candidates, and
// reports deadline drift against the previous run. Oracle and store failures
// are counted, stamped in the log, and never abort the run. The log is
// flushed before returning.
func (e *Enricher) Run(ctx context.Context, platform string) (*Report, error) {
	result, err := e.Store.List(ctx, db.ListParams{Platform: platform, Limit: 1000})
	if err != nil {
		return nil, err
	}
	opportunities := result.Opportunities

	report := &Report{Total: len(opportunities)}

	var candidates []models.Opportunity
	for i := range opportunities {
		opp := &opportunities[i]
		key := opp.CompositeKey()

		if e.NeedsEnrichment(opp) {
			candidates = append(candidates, *opp)
		} else if e.Log.Seen(key) {
			report.AlreadyEnriched++
		}

		if old, ok := e.Log.PreviousDeadline(key); ok && old != opp.DeadlineRaw {
			report.DeadlineChanges = append(report.DeadlineChanges, DeadlineChange{
				Key:   key,
				Title: opp.Title,
				Old:   old,
				New:   opp.DeadlineRaw,
			})
		}
	}
	report.Candidates = len(candidates)

	batch := e.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	if len(candidates) > batch {
		candidates = candidates[:batch]
	}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			break
		}
		opp := &candidates[i]
		e.enrichOne(ctx, opp, report)
		if e.CallDelay > 0 && i < len(candidates)-1 {
			time.Sleep(e.CallDelay)
		}
	}

	for i := range opportunities {
		opp := &opportunities[i]
		e.Log.RecordDeadline(opp.CompositeKey(), opp.DeadlineRaw)
	}

	if err := e.Log.Save(e.now()); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Enricher) enrichOne(ctx context.Context, opp *models.Opportunity, report *Report) {
	key := opp.CompositeKey()

	extraction, err := ai.ExtractLocation(ctx, e.Oracle, ai.LocationRequest{
		Title:        opp.Title,
		Organization: opp.Organization,
		LocationRaw:  opp.LocationRaw,
		URL:          opp.URL,
		Description:  opp.Description,
	})
	if err != nil {
		log.Printf("enrich: oracle failed for %q: %v", opp.Title, err)
		report.Errors++
		e.Log.MarkEnriched(key, e.now())
		return
	}

	if extraction == nil || !accepted(extraction) {
		report.Rejected++
		e.Log.MarkEnriched(key, e.now())
		return
	}

	original := opp.LocationRaw
	apply(opp, extraction)

	if err := e.Store.UpdateLocation(ctx, opp); err != nil {
		log.Printf("enrich: update failed for %q: %v", opp.Title, err)
		report.Errors++
		return
	}

	log.Printf("enrich: %q: %q -> %q", opp.Title, original, opp.LocationRaw)
	report.Enriched++
	e.Log.MarkEnriched(key, e.now())
}

func accepted(x *ai.LocationExtraction) bool {
	if x.Confidence != models.ConfidenceHigh && x.Confidence != models.ConfidenceMedium {
		return false
	}
	return x.IsOnline || x.City != "" || x.State != ""
}

// apply rewrites the location fields from an accepted extraction and attaches
// provenance metadata, keeping the original raw value recoverable.
func apply(opp *models.Opportunity, x *ai.LocationExtraction) {
	original := opp.LocationRaw

	locType := models.LocationPhysical
	if x.IsOnline {
		opp.LocationRaw = models.SentinelOnline
		opp.LocationCity = ""
		opp.LocationState = ""
		locType = models.LocationOnline
	} else {
		var parts []string
		if x.City != "" {
			parts = append(parts, x.City)
			opp.LocationCity = x.City
		}
		if x.State != "" {
			parts = append(parts, x.State)
			opp.LocationState = x.State
		}
		opp.LocationRaw = strings.Join(parts, ", ")
		if x.Country != "" && !strings.EqualFold(x.Country, "USA") && !strings.EqualFold(x.Country, "United States") {
			opp.LocationCountry = x.Country
		}
	}

	if opp.Extras == nil {
		opp.Extras = map[string]any{}
	}
	opp.Extras["location_metadata"] = &models.LocationMetadata{
		Original:         original,
		Enriched:         opp.LocationRaw,
		Confidence:       x.Confidence,
		Type:             locType,
		ExtractionSource: models.SourceInferred,
	}
}
