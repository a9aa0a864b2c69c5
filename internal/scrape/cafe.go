package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Third-South-Capital/callscrape/internal/ingest"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

// CafeScraper reads CallForEntry.org's festivals AJAX endpoint. The endpoint
// returns the full active catalog as JSON; no HTML parsing needed.
type CafeScraper struct {
	fetcher *Fetcher
	cfg     SourceConfig
}

func NewCafeScraper(fetcher *Fetcher, cfg SourceConfig) *CafeScraper {
	return &CafeScraper{fetcher: fetcher, cfg: cfg}
}

func (s *CafeScraper) Platform() string { return models.PlatformCafe }

// looseString tolerates the endpoint's habit of switching between JSON
// strings and numbers for the same field.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

func (s looseString) String() string { return string(s) }

type cafeItem struct {
	ID              looseString `json:"id"`
	FairName        string      `json:"fair_name"`
	Organization    string      `json:"organization_name"`
	FairDeadline    string      `json:"fair_deadline"` // already YYYY-MM-DD
	FairCity        string      `json:"fair_city"`
	FairState       looseString `json:"fair_state"` // numeric state code
	EntryFee        looseString `json:"entry_fee"`
	Description     string      `json:"description"`
	FairURL         string      `json:"fair_url"` // the gallery's own site
	EventStart      string      `json:"event_start"`
	EventEnd        string      `json:"event_end"`
	FairEmail       string      `json:"fair_email"`
	EligibilityText string      `json:"eligibility_text"`
	AwardsText      string      `json:"awards_text"`
	BoothFee        looseString `json:"booth_fee"`
	Commission      looseString `json:"commission"`
}

type cafeResponse struct {
	Results []cafeItem `json:"results"`
}

func (s *CafeScraper) Fetch(ctx context.Context) ([]ingest.RawOpportunity, error) {
	form := map[string]string{
		"start-index":           "0",
		"keyword":               "",
		"entry-fee-min":         "",
		"entry-fee-max":         "",
		"participation-fee-min": "",
		"participation-fee-max": "",
		"budget-min":            "",
		"budget-max":            "",
		"sort":                  "0",
		"show-only-fair-id":     "0",
	}
	headers := map[string]string{
		"X-Requested-With": "XMLHttpRequest",
		"Accept":           "application/json, text/javascript, */*; q=0.01",
	}

	body, err := s.fetcher.PostForm(ctx, s.cfg.BaseURL+"/festivals-ajax.php", form, headers)
	if err != nil {
		return nil, fmt.Errorf("cafe listing fetch: %w", err)
	}

	raws, err := parseCafeResponse(body, s.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	log.Printf("[cafe] fetched %d opportunities", len(raws))
	return raws, nil
}

func parseCafeResponse(body []byte, baseURL string) ([]ingest.RawOpportunity, error) {
	var resp cafeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cafe listing decode: %w", err)
	}

	now := time.Now().UTC()
	raws := make([]ingest.RawOpportunity, 0, len(resp.Results))
	for _, item := range resp.Results {
		id := item.ID.String()
		raw := ingest.RawOpportunity{
			PlatformID:   id,
			Title:        item.FairName,
			Organization: item.Organization,
			URL:          fmt.Sprintf("%s/festivals_unique_info.php?ID=%s", baseURL, id),
			Platform:     models.PlatformCafe,
			Deadline:     item.FairDeadline,
			Location:     ingest.FormatCityState(item.FairCity, item.FairState.String()),
			Fee:          item.EntryFee.String(),
			Description:  item.Description,
			Eligibility:  item.EligibilityText,
			Email:        item.FairEmail,
			ScrapedAt:    now,
			Extra:        map[string]any{},
		}
		if item.FairURL != "" {
			raw.Extra["gallery_url"] = item.FairURL
		}
		if item.EventStart != "" {
			raw.Extra["event_start"] = item.EventStart
		}
		if item.EventEnd != "" {
			raw.Extra["event_end"] = item.EventEnd
		}
		if item.AwardsText != "" {
			raw.Extra["awards"] = item.AwardsText
		}
		if fee := item.BoothFee.String(); fee != "" {
			raw.Extra["booth_fee"] = fee
		}
		if comm := item.Commission.String(); comm != "" {
			raw.Extra["commission"] = comm
		}
		raws = append(raws, raw)
	}
	return raws, nil
}
