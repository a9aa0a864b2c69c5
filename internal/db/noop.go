package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

// NoopStore keeps everything in memory. Used for offline scrape runs
// (no DATABASE_URL) and in tests; it honors the same lifecycle rules as
// the Postgres store.
type NoopStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Opportunity
	runs []models.ScrapeRun
}

func NewNoopStore() *NoopStore {
	return &NoopStore{byID: map[uuid.UUID]*models.Opportunity{}}
}

func (s *NoopStore) GetByID(_ context.Context, id uuid.UUID) (*models.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opp, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *opp
	return &copied, nil
}

func (s *NoopStore) List(_ context.Context, params ListParams) (*ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Opportunity
	for _, opp := range s.byID {
		if params.Platform != "" && opp.SourcePlatform != params.Platform {
			continue
		}
		if params.Active != nil && opp.IsActive != *params.Active {
			continue
		}
		if params.Free != nil && opp.FeeIsFree != *params.Free {
			continue
		}
		if params.State != "" && opp.LocationState != params.State {
			continue
		}
		if params.Query != "" {
			q := strings.ToLower(params.Query)
			if !strings.Contains(strings.ToLower(opp.Title), q) &&
				!strings.Contains(strings.ToLower(opp.Organization), q) {
				continue
			}
		}
		all = append(all, *opp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })

	limit := normalizeListLimit(params.Limit)
	result := &ListResult{Total: len(all), Limit: limit, Offset: params.Offset}
	start := params.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	result.Opportunities = all[start:end]
	return result, nil
}

func (s *NoopStore) Upsert(_ context.Context, opp *models.Opportunity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.byID[opp.ID]
	if !ok {
		copied := *opp
		copied.FirstSeen = now
		copied.LastSeen = now
		copied.TimesSeen = 1
		s.byID[opp.ID] = &copied
		return true, nil
	}

	merged := *opp
	merged.FirstSeen = existing.FirstSeen
	merged.LastSeen = now
	merged.TimesSeen = existing.TimesSeen + 1
	preserveNonEmpty(&merged, existing)
	s.byID[opp.ID] = &merged
	return false, nil
}

// preserveNonEmpty fills merged's empty fields from the previous row,
// mirroring the COALESCE(NULLIF(...)) SQL in the Postgres upsert.
func preserveNonEmpty(merged, prev *models.Opportunity) {
	if merged.Title == "" {
		merged.Title = prev.Title
	}
	if merged.Organization == "" {
		merged.Organization = prev.Organization
	}
	if merged.URL == "" {
		merged.URL = prev.URL
	}
	if len(merged.AlternateURLs) == 0 {
		merged.AlternateURLs = prev.AlternateURLs
	}
	if merged.DeadlineRaw == "" {
		merged.DeadlineRaw = prev.DeadlineRaw
	}
	if merged.DeadlineParsed == nil {
		merged.DeadlineParsed = prev.DeadlineParsed
	}
	if merged.LocationRaw == "" {
		merged.LocationRaw = prev.LocationRaw
	}
	if merged.LocationCity == "" {
		merged.LocationCity = prev.LocationCity
	}
	if merged.LocationState == "" {
		merged.LocationState = prev.LocationState
	}
	if merged.LocationCountry == "" {
		merged.LocationCountry = prev.LocationCountry
	}
	if merged.FeeRaw == "" {
		merged.FeeRaw = prev.FeeRaw
	}
	if merged.FeeAmount == nil {
		merged.FeeAmount = prev.FeeAmount
	}
	if merged.Description == "" {
		merged.Description = prev.Description
	}
	if merged.Eligibility == "" {
		merged.Eligibility = prev.Eligibility
	}
	if merged.Email == "" {
		merged.Email = prev.Email
	}
	if merged.Extras == nil {
		merged.Extras = prev.Extras
	} else {
		for k, v := range prev.Extras {
			if _, ok := merged.Extras[k]; !ok {
				merged.Extras[k] = v
			}
		}
	}
}

func (s *NoopStore) UpdateLocation(_ context.Context, opp *models.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[opp.ID]
	if !ok {
		return ErrNotFound
	}
	existing.LocationRaw = opp.LocationRaw
	existing.LocationCity = opp.LocationCity
	existing.LocationState = opp.LocationState
	existing.LocationCountry = opp.LocationCountry
	if opp.Extras != nil {
		if existing.Extras == nil {
			existing.Extras = map[string]any{}
		}
		for k, v := range opp.Extras {
			existing.Extras[k] = v
		}
	}
	return nil
}

func (s *NoopStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &Stats{ByPlatform: map[string]int{}}
	for _, opp := range s.byID {
		stats.Total++
		if opp.IsActive {
			stats.Active++
		}
		if opp.FeeIsFree {
			stats.Free++
		}
		stats.ByPlatform[opp.SourcePlatform]++
	}
	return stats, nil
}

func (s *NoopStore) StartRun(_ context.Context, run *models.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = "running"
	s.runs = append(s.runs, *run)
	return nil
}

func (s *NoopStore) FinishRun(_ context.Context, run *models.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	run.CompletedAt = &now
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = *run
			return nil
		}
	}
	s.runs = append(s.runs, *run)
	return nil
}

func (s *NoopStore) ListRuns(_ context.Context, limit int) ([]models.ScrapeRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.runs) {
		limit = len(s.runs)
	}
	out := make([]models.ScrapeRun, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.runs[len(s.runs)-1-i]
	}
	return out, nil
}
