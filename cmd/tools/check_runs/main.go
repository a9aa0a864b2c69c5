package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/Third-South-Capital/callscrape/internal/db"
)

func main() {
	limit := flag.Int("limit", 10, "Number of recent runs to show")
	flag.Parse()

	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewPostgresStore(pool)
	runs, err := store.ListRuns(ctx, *limit)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Platform", "Status", "Found", "Saved", "Errors", "Duration", "Started At"})

	for _, run := range runs {
		duration := "Running..."
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			run.SourcePlatform, run.Status, run.ItemsFound, run.ItemsSaved,
			run.Errors, duration, run.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}
