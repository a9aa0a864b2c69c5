package scrape

import (
	"testing"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.Sources) != len(models.Platforms) {
		t.Fatalf("got %d sources, want %d", len(reg.Sources), len(models.Platforms))
	}
	for _, platform := range models.Platforms {
		src := reg.Source(platform)
		if src == nil {
			t.Errorf("platform %s missing from registry", platform)
			continue
		}
		if src.BaseURL == "" {
			t.Errorf("platform %s has no base URL", platform)
		}
	}
	if reg.Source("nope") != nil {
		t.Errorf("unknown platform should resolve to nil")
	}
}

func TestBuildScrapers(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	scrapers, err := BuildScrapers(reg, NewFetcher())
	if err != nil {
		t.Fatalf("BuildScrapers: %v", err)
	}
	if len(scrapers) != len(models.Platforms) {
		t.Fatalf("got %d scrapers, want %d", len(scrapers), len(models.Platforms))
	}
	seen := map[string]bool{}
	for _, s := range scrapers {
		if seen[s.Platform()] {
			t.Errorf("duplicate scraper for %s", s.Platform())
		}
		seen[s.Platform()] = true
	}
}

func TestFetcherForSource(t *testing.T) {
	base := NewFetcher()
	tuned := base.forSource(SourceConfig{Fetch: FetchConfig{RateLimitRPS: 2.0, TimeoutSeconds: 10}})
	if tuned.DomainDelay >= base.DomainDelay {
		t.Errorf("2 rps should shorten the delay, got %v", tuned.DomainDelay)
	}
	if tuned.RequestTimeout == base.RequestTimeout {
		t.Errorf("timeout override not applied")
	}
	if base.DomainDelay != NewFetcher().DomainDelay {
		t.Errorf("forSource must not mutate the shared fetcher")
	}
}
