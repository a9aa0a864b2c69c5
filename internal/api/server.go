package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Third-South-Capital/callscrape/internal/aggregate"
	"github.com/Third-South-Capital/callscrape/internal/ai"
	"github.com/Third-South-Capital/callscrape/internal/auth"
	"github.com/Third-South-Capital/callscrape/internal/db"
	"github.com/Third-South-Capital/callscrape/internal/enrich"
	"github.com/Third-South-Capital/callscrape/internal/models"
	"github.com/Third-South-Capital/callscrape/internal/scrape"
)

type Server struct {
	Store    db.Store
	Echo     *echo.Echo
	Registry *scrape.Registry
	Fetcher  *scrape.Fetcher
	Oracle   ai.Oracle

	// Path of the enrichment memo log; empty means the default.
	EnrichLogPath string

	// One background job at a time; a new one replaces a finished one.
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"` // running, completed, failed
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func NewServer(store db.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:3000"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	registry, err := scrape.LoadRegistry(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("load source registry: %w", err)
	}

	s := &Server{
		Store:    store,
		Echo:     e,
		Registry: registry,
		Fetcher:  scrape.NewFetcher(),
		Oracle:   ai.NewOllamaClient("", os.Getenv("OLLAMA_MODEL")),
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/opportunities", s.handleListOpportunities)
	api.GET("/opportunities/:id", s.handleGetOpportunity)
	api.GET("/platforms", s.handleGetPlatforms)
	api.GET("/stats", s.handleGetStats)
	api.GET("/runs", s.handleGetRuns)

	admin := api.Group("")
	admin.Use(auth.AdminMiddleware(os.Getenv("ADMIN_SECRET")))
	admin.POST("/ingest/:platform", s.handleIngestPlatform)
	admin.POST("/ingest/all", s.handleIngestAll)
	admin.POST("/enrich", s.handleEnrich)
	admin.GET("/jobs/:id", s.handleJobStatus)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	params := db.ListParams{
		Platform: c.QueryParam("platform"),
		State:    strings.ToUpper(c.QueryParam("state")),
		Query:    c.QueryParam("q"),
		Limit:    20,
	}

	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		params.Limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		params.Offset = o
	}
	if v := c.QueryParam("active"); v != "" {
		active := v == "true"
		params.Active = &active
	}
	if v := c.QueryParam("free"); v != "" {
		free := v == "true"
		params.Free = &free
	}

	result, err := s.Store.List(c.Request().Context(), params)
	if err != nil {
		c.Logger().Errorf("list opportunities: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID"})
	}
	opp, err := s.Store.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleGetPlatforms(c echo.Context) error {
	type platformInfo struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		BaseURL string `json:"base_url"`
		Enabled bool   `json:"enabled"`
	}
	out := make([]platformInfo, 0, len(s.Registry.Sources))
	for _, src := range s.Registry.Sources {
		out = append(out, platformInfo{ID: src.ID, Name: src.Name, BaseURL: src.BaseURL, Enabled: src.Enabled})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetRuns(c echo.Context) error {
	limit := 20
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	runs, err := s.Store.ListRuns(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, runs)
}

// handleIngestPlatform scrapes a single platform synchronously and syncs the
// results to the store.
func (s *Server) handleIngestPlatform(c echo.Context) error {
	platform := c.Param("platform")
	if !models.KnownPlatform(platform) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown platform: " + platform})
	}
	src := s.Registry.Source(platform)
	if src == nil || !src.Enabled {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Platform disabled: " + platform})
	}

	result, err := s.ingestPlatforms(c.Request().Context(), []string{platform})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// handleIngestAll kicks off a full scrape in the background and returns the
// job ID immediately.
func (s *Server) handleIngestAll(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		id := s.runningJob.ID
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]string{"error": "job already running", "id": id})
	}
	job := &backgroundJob{
		ID:        uuid.NewString(),
		Status:    "running",
		StartedAt: time.Now(),
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		result, err := s.ingestPlatforms(ctx, nil)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			return
		}
		job.Status = "completed"
		job.Result = result
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"id": job.ID, "status": job.Status})
}

type ingestResult struct {
	Platforms  map[string]int        `json:"platforms"`
	Duplicates int                   `json:"duplicates"`
	Sync       *aggregate.SyncResult `json:"sync"`
	Failed     []string              `json:"failed,omitempty"`
}

// ingestPlatforms runs the named scrapers (all enabled ones when platforms
// is nil), aggregates, deduplicates, and syncs. Per-platform scrape runs are
// recorded in the store.
func (s *Server) ingestPlatforms(ctx context.Context, platforms []string) (*ingestResult, error) {
	scrapers, err := scrape.BuildScrapers(s.Registry, s.Fetcher)
	if err != nil {
		return nil, err
	}

	wanted := map[string]bool{}
	for _, p := range platforms {
		wanted[p] = true
	}

	agg := aggregate.New()
	result := &ingestResult{Platforms: map[string]int{}}

	for _, scraper := range scrapers {
		platform := scraper.Platform()
		if len(wanted) > 0 && !wanted[platform] {
			continue
		}

		run := &models.ScrapeRun{
			ID:             uuid.New(),
			SourcePlatform: platform,
			Status:         "running",
			StartedAt:      time.Now(),
		}
		if err := s.Store.StartRun(ctx, run); err != nil {
			return nil, fmt.Errorf("record run for %s: %w", platform, err)
		}

		batch, err := scraper.Fetch(ctx)
		if err != nil {
			run.Status = "failed"
			run.Errors++
			finishRun(ctx, s.Store, run)
			result.Failed = append(result.Failed, platform)
			continue
		}

		agg.Add(platform, batch)
		result.Platforms[platform] = len(batch)
		run.Status = "completed"
		run.ItemsFound = len(batch)
		finishRun(ctx, s.Store, run)
	}

	agg.Deduplicate()
	result.Duplicates = len(agg.Duplicates())

	sync, err := agg.Sync(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	result.Sync = sync
	return result, nil
}

func finishRun(ctx context.Context, store db.Store, run *models.ScrapeRun) {
	now := time.Now()
	run.CompletedAt = &now
	if err := store.FinishRun(ctx, run); err != nil {
		log.Printf("api: finish run %s: %v", run.SourcePlatform, err)
	}
}

// handleEnrich runs one batch of LLM location enrichment.
func (s *Server) handleEnrich(c echo.Context) error {
	enrichLog, err := enrich.LoadLog(s.EnrichLogPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	enricher := enrich.NewEnricher(s.Store, s.Oracle, enrichLog)
	if b, err := strconv.Atoi(c.QueryParam("batch")); err == nil && b > 0 && b <= 100 {
		enricher.BatchSize = b
	}

	report, err := enricher.Run(c.Request().Context(), c.QueryParam("platform"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	job := s.runningJob
	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}
