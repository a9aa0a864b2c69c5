package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/Third-South-Capital/callscrape/internal/aggregate"
	"github.com/Third-South-Capital/callscrape/internal/ai"
	"github.com/Third-South-Capital/callscrape/internal/db"
	"github.com/Third-South-Capital/callscrape/internal/enrich"
	"github.com/Third-South-Capital/callscrape/internal/models"
	"github.com/Third-South-Capital/callscrape/internal/scrape"
)

func main() {
	platformsFlag := flag.String("platforms", "", "Comma-separated platforms to scrape (default: all enabled)")
	outputDir := flag.String("output", "data", "Directory for JSON result files")
	sourcesPath := flag.String("sources", "", "Override path for sources.yaml")
	noSave := flag.Bool("no-save", false, "Skip syncing results to the database")
	runEnrich := flag.Bool("enrich", false, "Run LLM location enrichment after syncing")
	enrichBatch := flag.Int("enrich-batch", 20, "Max oracle calls during enrichment")
	flag.Parse()

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := scrape.LoadRegistry(*sourcesPath)
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}
	scrapers, err := scrape.BuildScrapers(registry, scrape.NewFetcher())
	if err != nil {
		log.Fatalf("Failed to build scrapers: %v", err)
	}

	wanted := map[string]bool{}
	if *platformsFlag != "" {
		for _, p := range strings.Split(*platformsFlag, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !models.KnownPlatform(p) {
				log.Fatalf("Unknown platform: %s", p)
			}
			wanted[p] = true
		}
	}

	store, cleanup := openStore(ctx, *noSave)
	defer cleanup()

	agg := aggregate.New()
	found := map[string]int{}
	var failed []string

	for _, scraper := range scrapers {
		platform := scraper.Platform()
		if len(wanted) > 0 && !wanted[platform] {
			continue
		}

		log.Printf("Scraping %s...", platform)
		run := &models.ScrapeRun{
			ID:             uuid.New(),
			SourcePlatform: platform,
			Status:         "running",
			StartedAt:      time.Now(),
		}
		if err := store.StartRun(ctx, run); err != nil {
			log.Printf("Failed to record run for %s: %v", platform, err)
		}

		batch, err := scraper.Fetch(ctx)
		now := time.Now()
		run.CompletedAt = &now
		if err != nil {
			log.Printf("%s failed: %v", platform, err)
			run.Status = "failed"
			run.Errors++
			failed = append(failed, platform)
		} else {
			run.Status = "completed"
			run.ItemsFound = len(batch)
			found[platform] = len(batch)
			agg.Add(platform, batch)
		}
		if err := store.FinishRun(ctx, run); err != nil {
			log.Printf("Failed to finish run for %s: %v", platform, err)
		}
	}

	agg.Deduplicate()

	if _, err := agg.SaveResults(*outputDir); err != nil {
		log.Fatalf("Failed to save results: %v", err)
	}

	sync := &aggregate.SyncResult{}
	if !*noSave {
		sync, err = agg.Sync(ctx, store)
		if err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
	}

	report := &enrich.Report{}
	if *runEnrich {
		report = runEnrichment(ctx, store, *enrichBatch)
	}

	printSummary(found, failed, agg, sync, report)
}

// openStore connects to Postgres when DATABASE_URL is configured, otherwise
// falls back to an in-memory store so dry runs still work end to end.
func openStore(ctx context.Context, noSave bool) (db.Store, func()) {
	if noSave {
		return db.NewNoopStore(), func() {}
	}
	if os.Getenv("DATABASE_URL") == "" {
		log.Fatal("DATABASE_URL must be set (or pass -no-save for an offline run)")
	}

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	return db.NewPostgresStore(pool), pool.Close
}

func runEnrichment(ctx context.Context, store db.Store, batch int) *enrich.Report {
	enrichLog, err := enrich.LoadLog("")
	if err != nil {
		log.Printf("Enrichment skipped: %v", err)
		return &enrich.Report{}
	}

	enricher := enrich.NewEnricher(store, ai.NewOllamaClient("", os.Getenv("OLLAMA_MODEL")), enrichLog)
	enricher.BatchSize = batch

	report, err := enricher.Run(ctx, "")
	if err != nil {
		log.Printf("Enrichment failed: %v", err)
		return &enrich.Report{}
	}

	for _, change := range report.DeadlineChanges {
		log.Printf("Deadline moved for %q: %q -> %q", change.Title, change.Old, change.New)
	}
	return report
}

func printSummary(found map[string]int, failed []string, agg *aggregate.Aggregator, sync *aggregate.SyncResult, report *enrich.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Platform", "Found"})
	for _, platform := range models.Platforms {
		if n, ok := found[platform]; ok {
			t.AppendRow(table.Row{platform, n})
		}
	}
	for _, platform := range failed {
		t.AppendRow(table.Row{platform, "failed"})
	}
	t.AppendFooter(table.Row{"Unique", len(agg.Opportunities())})
	t.Render()

	stats := agg.Statistics()
	log.Printf("Duplicates collapsed: %d", stats.DuplicatesFound)
	log.Printf("Sync: %d inserted, %d updated, %d skipped, %d errors",
		sync.Inserted, sync.Updated, sync.Skipped, sync.Errors)
	if report.Enriched > 0 || report.Rejected > 0 || report.Errors > 0 {
		log.Printf("Enrichment: %d enriched, %d rejected, %d errors, %d deadline changes",
			report.Enriched, report.Rejected, report.Errors, len(report.DeadlineChanges))
	}
}
