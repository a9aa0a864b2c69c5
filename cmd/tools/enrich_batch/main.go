package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
)

type enrichResponse struct {
	Total           int `json:"total"`
	AlreadyEnriched int `json:"already_enriched"`
	Candidates      int `json:"candidates"`
	Enriched        int `json:"enriched"`
	Rejected        int `json:"rejected"`
	Errors          int `json:"errors"`
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8081", "API base URL")
	adminSecretFlag := flag.String("admin-secret", "", "Admin secret (or use ADMIN_SECRET env)")
	platform := flag.String("platform", "", "Restrict enrichment to one platform")
	batchSize := flag.Int("batch-size", 20, "Oracle calls per round")
	rounds := flag.Int("rounds", 1, "Number of enrichment rounds to request")
	rateLimitMs := flag.Int("rate-limit-ms", 1000, "Delay between rounds in milliseconds")
	timeoutSec := flag.Int("timeout-sec", 300, "HTTP timeout in seconds")
	flag.Parse()

	_ = godotenv.Load()

	adminSecret := strings.TrimSpace(*adminSecretFlag)
	if adminSecret == "" {
		adminSecret = strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
	}
	if adminSecret == "" {
		exitErr(errors.New("missing admin secret: use -admin-secret or ADMIN_SECRET env"))
	}
	if *batchSize <= 0 || *rounds <= 0 {
		exitErr(errors.New("batch-size and rounds must be > 0"))
	}

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Round", "Candidates", "Enriched", "Rejected", "Errors", "Duration"})

	for round := 1; round <= *rounds; round++ {
		start := time.Now()
		resp, err := callEnrich(client, *baseURL, adminSecret, *platform, *batchSize)
		if err != nil {
			exitErr(fmt.Errorf("round %d: %w", round, err))
		}
		t.AppendRow(table.Row{
			round, resp.Candidates, resp.Enriched, resp.Rejected, resp.Errors,
			time.Since(start).Round(time.Millisecond).String(),
		})

		// Nothing left to do once the candidate pool fits in one batch.
		if resp.Candidates <= *batchSize {
			break
		}
		if round < *rounds {
			time.Sleep(time.Duration(*rateLimitMs) * time.Millisecond)
		}
	}
	t.Render()
}

func callEnrich(client *http.Client, baseURL, adminSecret, platform string, batchSize int) (*enrichResponse, error) {
	endpoint, err := url.Parse(strings.TrimRight(baseURL, "/") + "/api/v1/enrich")
	if err != nil {
		return nil, err
	}
	q := endpoint.Query()
	q.Set("batch", strconv.Itoa(batchSize))
	if platform != "" {
		q.Set("platform", platform)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Admin-Secret", adminSecret)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out enrichResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
