package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// List limit bounds. Oversized requests are capped, not reset, so batch
// consumers like the enricher see the full window they asked for.
const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func normalizeListLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// ListParams filters opportunity listings.
type ListParams struct {
	Platform string
	Active   *bool
	Free     *bool
	State    string
	Query    string // matches title or organization
	Limit    int
	Offset   int
}

// ListResult wraps a page of opportunities.
type ListResult struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Total         int                  `json:"total"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

// Stats summarizes the stored catalog.
type Stats struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	Free       int            `json:"free"`
	ByPlatform map[string]int `json:"by_platform"`
}

// Store is the record persistence surface. PostgresStore backs production;
// NoopStore keeps offline runs and tests wired without a database.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Upsert(ctx context.Context, opp *models.Opportunity) (inserted bool, err error)
	UpdateLocation(ctx context.Context, opp *models.Opportunity) error
	Stats(ctx context.Context) (*Stats, error)

	StartRun(ctx context.Context, run *models.ScrapeRun) error
	FinishRun(ctx context.Context, run *models.ScrapeRun) error
	ListRuns(ctx context.Context, limit int) ([]models.ScrapeRun, error)
}

// PostgresStore persists opportunities with pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectCols = `id, title, organization, url, source_platform, alternate_urls,
	deadline_raw, deadline_parsed, location_raw, location_city, location_state,
	location_country, fee_raw, fee_amount, fee_is_free, description, eligibility,
	email, extras, is_active, first_seen, last_seen, times_seen`

func scanOpportunity(scan func(dest ...any) error) (models.Opportunity, error) {
	var o models.Opportunity
	var extrasRaw []byte

	err := scan(
		&o.ID, &o.Title, &o.Organization, &o.URL, &o.SourcePlatform, &o.AlternateURLs,
		&o.DeadlineRaw, &o.DeadlineParsed, &o.LocationRaw, &o.LocationCity, &o.LocationState,
		&o.LocationCountry, &o.FeeRaw, &o.FeeAmount, &o.FeeIsFree, &o.Description, &o.Eligibility,
		&o.Email, &extrasRaw, &o.IsActive, &o.FirstSeen, &o.LastSeen, &o.TimesSeen,
	)
	if err != nil {
		return o, err
	}
	if len(extrasRaw) > 0 {
		_ = json.Unmarshal(extrasRaw, &o.Extras)
	}
	return o, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+selectCols+" FROM opportunities WHERE id = $1", id)
	o, err := scanOpportunity(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) List(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE 1=1"
	var args []any
	argIdx := 1

	if params.Platform != "" {
		where += fmt.Sprintf(" AND source_platform = $%d", argIdx)
		args = append(args, params.Platform)
		argIdx++
	}
	if params.Active != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argIdx)
		args = append(args, *params.Active)
		argIdx++
	}
	if params.Free != nil {
		where += fmt.Sprintf(" AND fee_is_free = $%d", argIdx)
		args = append(args, *params.Free)
		argIdx++
	}
	if params.State != "" {
		where += fmt.Sprintf(" AND location_state = $%d", argIdx)
		args = append(args, params.State)
		argIdx++
	}
	if params.Query != "" {
		where += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR organization ILIKE '%%' || $%d || '%%')", argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count opportunities: %w", err)
	}

	limit := normalizeListLimit(params.Limit)
	query := fmt.Sprintf("SELECT %s FROM opportunities %s ORDER BY deadline_parsed ASC NULLS LAST, title ASC LIMIT $%d OFFSET $%d",
		selectCols, where, argIdx, argIdx+1)
	args = append(args, limit, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	result := &ListResult{Total: total, Limit: limit, Offset: params.Offset}
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		result.Opportunities = append(result.Opportunities, o)
	}
	return result, rows.Err()
}

// Upsert inserts the record or folds it into the existing row. Updates
// increment times_seen, keep first_seen, and only overwrite a field when the
// incoming value is non-empty.
func (s *PostgresStore) Upsert(ctx context.Context, opp *models.Opportunity) (bool, error) {
	extras, err := json.Marshal(opp.Extras)
	if err != nil {
		return false, fmt.Errorf("encode extras: %w", err)
	}
	if opp.Extras == nil {
		extras = []byte("{}")
	}
	alternates := opp.AlternateURLs
	if alternates == nil {
		alternates = []string{}
	}

	var inserted bool
	err = s.pool.QueryRow(ctx, `
		INSERT INTO opportunities (
			id, title, organization, url, source_platform, alternate_urls,
			deadline_raw, deadline_parsed, location_raw, location_city, location_state,
			location_country, fee_raw, fee_amount, fee_is_free, description, eligibility,
			email, extras, is_active, first_seen, last_seen, times_seen
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,NOW(),NOW(),1)
		ON CONFLICT (id) DO UPDATE SET
			title            = COALESCE(NULLIF(EXCLUDED.title, ''), opportunities.title),
			organization     = COALESCE(NULLIF(EXCLUDED.organization, ''), opportunities.organization),
			url              = COALESCE(NULLIF(EXCLUDED.url, ''), opportunities.url),
			alternate_urls   = CASE WHEN CARDINALITY(EXCLUDED.alternate_urls) > 0
			                        THEN EXCLUDED.alternate_urls ELSE opportunities.alternate_urls END,
			deadline_raw     = COALESCE(NULLIF(EXCLUDED.deadline_raw, ''), opportunities.deadline_raw),
			deadline_parsed  = COALESCE(EXCLUDED.deadline_parsed, opportunities.deadline_parsed),
			location_raw     = COALESCE(NULLIF(EXCLUDED.location_raw, ''), opportunities.location_raw),
			location_city    = COALESCE(NULLIF(EXCLUDED.location_city, ''), opportunities.location_city),
			location_state   = COALESCE(NULLIF(EXCLUDED.location_state, ''), opportunities.location_state),
			location_country = COALESCE(NULLIF(EXCLUDED.location_country, ''), opportunities.location_country),
			fee_raw          = COALESCE(NULLIF(EXCLUDED.fee_raw, ''), opportunities.fee_raw),
			fee_amount       = COALESCE(EXCLUDED.fee_amount, opportunities.fee_amount),
			fee_is_free      = EXCLUDED.fee_is_free,
			description      = COALESCE(NULLIF(EXCLUDED.description, ''), opportunities.description),
			eligibility      = COALESCE(NULLIF(EXCLUDED.eligibility, ''), opportunities.eligibility),
			email            = COALESCE(NULLIF(EXCLUDED.email, ''), opportunities.email),
			extras           = opportunities.extras || EXCLUDED.extras,
			is_active        = EXCLUDED.is_active,
			last_seen        = NOW(),
			times_seen       = opportunities.times_seen + 1
		RETURNING (xmax = 0)
	`,
		opp.ID, opp.Title, opp.Organization, opp.URL, opp.SourcePlatform, alternates,
		opp.DeadlineRaw, opp.DeadlineParsed, opp.LocationRaw, opp.LocationCity, opp.LocationState,
		opp.LocationCountry, opp.FeeRaw, opp.FeeAmount, opp.FeeIsFree, opp.Description, opp.Eligibility,
		opp.Email, extras, opp.IsActive,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert opportunity %s: %w", opp.ID, err)
	}
	return inserted, nil
}

// UpdateLocation writes back the enriched location fields and metadata.
func (s *PostgresStore) UpdateLocation(ctx context.Context, opp *models.Opportunity) error {
	extras, err := json.Marshal(opp.Extras)
	if err != nil {
		return fmt.Errorf("encode extras: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE opportunities SET
			location_raw = $2, location_city = $3, location_state = $4,
			location_country = $5, extras = extras || $6
		WHERE id = $1
	`, opp.ID, opp.LocationRaw, opp.LocationCity, opp.LocationState, opp.LocationCountry, extras)
	if err != nil {
		return fmt.Errorf("update location %s: %w", opp.ID, err)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByPlatform: map[string]int{}}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_active),
		       COUNT(*) FILTER (WHERE fee_is_free)
		FROM opportunities
	`).Scan(&stats.Total, &stats.Active, &stats.Free)
	if err != nil {
		return nil, fmt.Errorf("stats totals: %w", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT source_platform, COUNT(*) FROM opportunities GROUP BY source_platform")
	if err != nil {
		return nil, fmt.Errorf("stats by platform: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("scan platform count: %w", err)
		}
		stats.ByPlatform[platform] = count
	}
	return stats, rows.Err()
}

func (s *PostgresStore) StartRun(ctx context.Context, run *models.ScrapeRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = "running"
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_runs (id, source_platform, status, started_at)
		VALUES ($1, $2, $3, $4)
	`, run.ID, run.SourcePlatform, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *models.ScrapeRun) error {
	now := time.Now().UTC()
	run.CompletedAt = &now
	_, err := s.pool.Exec(ctx, `
		UPDATE scrape_runs SET status = $2, items_found = $3, items_saved = $4,
		       errors = $5, completed_at = $6
		WHERE id = $1
	`, run.ID, run.Status, run.ItemsFound, run.ItemsSaved, run.Errors, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_platform, status, items_found, items_saved, errors, started_at, completed_at
		FROM scrape_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ScrapeRun
	for rows.Next() {
		var r models.ScrapeRun
		if err := rows.Scan(&r.ID, &r.SourcePlatform, &r.Status, &r.ItemsFound, &r.ItemsSaved,
			&r.Errors, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
