package scrape

import (
	"embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all platform scrapers.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig tunes HTTP behavior per source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"`
	MaxRetries     int     `yaml:"max_retries,omitempty"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`
}

// SourceConfig defines one platform scraper.
type SourceConfig struct {
	ID           string      `yaml:"id"` // must be a known platform tag
	Name         string      `yaml:"name"`
	BaseURL      string      `yaml:"base_url"`
	Enabled      bool        `yaml:"enabled"`
	MaxPages     int         `yaml:"max_pages,omitempty"`
	MaxDetail    int         `yaml:"max_detail,omitempty"` // cap on detail-page fetches, 0 = all
	FetchDetails bool        `yaml:"fetch_details,omitempty"`
	Fetch        FetchConfig `yaml:"fetch,omitempty"`
}

// LoadRegistry reads the embedded sources.yaml; a path can override it for
// local development.
func LoadRegistry(path string) (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	for _, src := range reg.Sources {
		if !models.KnownPlatform(src.ID) {
			return nil, fmt.Errorf("unknown platform %q in sources config", src.ID)
		}
	}

	return &reg, nil
}

// Source returns the config for one platform, or nil when absent.
func (r *Registry) Source(platform string) *SourceConfig {
	for i := range r.Sources {
		if r.Sources[i].ID == platform {
			return &r.Sources[i]
		}
	}
	return nil
}

// BuildScrapers instantiates a Scraper for every enabled source.
func BuildScrapers(reg *Registry, fetcher *Fetcher) ([]Scraper, error) {
	var scrapers []Scraper
	for i := range reg.Sources {
		src := reg.Sources[i]
		if !src.Enabled {
			continue
		}
		fetcher := fetcher.forSource(src)
		switch src.ID {
		case models.PlatformCafe:
			scrapers = append(scrapers, NewCafeScraper(fetcher, src))
		case models.PlatformArtCall:
			scrapers = append(scrapers, NewArtCallScraper(fetcher, src))
		case models.PlatformShowSubmit:
			scrapers = append(scrapers, NewShowSubmitScraper(fetcher, src))
		case models.PlatformArtworkArchive:
			scrapers = append(scrapers, NewArtworkArchiveScraper(fetcher, src))
		case models.PlatformZapplication:
			scrapers = append(scrapers, NewZapplicationScraper(fetcher, src))
		default:
			return nil, fmt.Errorf("no scraper for platform %q", src.ID)
		}
	}
	return scrapers, nil
}

// forSource copies the fetcher with the source's overrides applied.
func (f *Fetcher) forSource(src SourceConfig) *Fetcher {
	out := *f
	if src.Fetch.TimeoutSeconds > 0 {
		out.RequestTimeout = time.Duration(src.Fetch.TimeoutSeconds) * time.Second
	}
	if src.Fetch.MaxRetries > 0 {
		out.MaxRetries = src.Fetch.MaxRetries
	}
	if src.Fetch.RateLimitRPS > 0 {
		out.DomainDelay = time.Duration(float64(time.Second) / src.Fetch.RateLimitRPS)
	}
	return &out
}
