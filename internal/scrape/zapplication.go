package scrape

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/Third-South-Capital/callscrape/internal/ingest"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

// ZapplicationScraper lists fair/festival events from zapplication.org.
// Event pages are Vue-rendered, but everything we need sits in the raw page
// source: the title tag, the _phpVueData blob, and plain-text fee lines.
type ZapplicationScraper struct {
	fetcher *Fetcher
	cfg     SourceConfig
}

func NewZapplicationScraper(fetcher *Fetcher, cfg SourceConfig) *ZapplicationScraper {
	return &ZapplicationScraper{fetcher: fetcher, cfg: cfg}
}

func (s *ZapplicationScraper) Platform() string { return models.PlatformZapplication }

var zappEventLinkRe = regexp.MustCompile(`event-info\.php\?ID=(\d+)`)

func (s *ZapplicationScraper) Fetch(ctx context.Context) ([]ingest.RawOpportunity, error) {
	body, err := s.fetcher.Get(ctx, s.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("zapplication listing fetch: %w", err)
	}

	ids := zappEventIDs(body)
	if len(ids) == 0 {
		return nil, nil
	}
	if s.cfg.MaxDetail > 0 && len(ids) > s.cfg.MaxDetail {
		ids = ids[:s.cfg.MaxDetail]
	}
	log.Printf("[zapplication] fetching %d event pages", len(ids))

	var raws []ingest.RawOpportunity
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return raws, err
		}
		eventURL := fmt.Sprintf("%s/event-info.php?ID=%s", s.cfg.BaseURL, id)
		page, err := s.fetcher.Get(ctx, eventURL)
		if err != nil {
			log.Printf("[zapplication] event %s fetch: %v", id, err)
			continue
		}
		if raw := parseZappEvent(string(page), id, eventURL); raw != nil {
			raws = append(raws, *raw)
		}
	}

	log.Printf("[zapplication] fetched %d opportunities", len(raws))
	return raws, nil
}

func zappEventIDs(body []byte) []string {
	seen := map[string]bool{}
	var ids []string
	for _, m := range zappEventLinkRe.FindAllSubmatch(body, -1) {
		id := string(m[1])
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

var (
	zappTitleRe    = regexp.MustCompile(`<title>ZAPP - Event Information - ([^<]+)</title>`)
	zappDeadlineRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Application Deadline[:\s]+([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)Deadline[:\s]+([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)Applications? (?:Due|Close)[:\s]+([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
	}
	zappAppFeeRe   = regexp.MustCompile(`(?i)Application Fee[:\s]+\$?([\d,]+(?:\.\d{2})?)`)
	zappBoothFeeRe = regexp.MustCompile(`(?i)Booth Fee[:\s]+\$?([\d,]+(?:\.\d{2})?)`)
	zappGeneralRe  = regexp.MustCompile(`_phpVueData\.eventGeneralInfo\s*=\s*"([^"]+)"`)
	zappDatesRes   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Event Dates?:\s*([A-Z][a-z]+\s+\d{1,2}(?:-\d{1,2})?,?\s*\d{4})`),
		regexp.MustCompile(`(?i)Show Dates?:\s*([A-Z][a-z]+\s+\d{1,2}[^<\n]*\d{4})`),
	}
	zappLocationRe = regexp.MustCompile(`:location="([^"]+)"`)
	zappByOrgRe    = regexp.MustCompile(`(?i)\bby\s+(.+)$`)
)

// parseZappEvent pulls an event record out of raw page source. Returns nil
// when the page carries no usable title (closed events render empty).
func parseZappEvent(page, id, eventURL string) *ingest.RawOpportunity {
	m := zappTitleRe.FindStringSubmatch(page)
	if m == nil {
		return nil
	}
	title := strings.TrimSpace(m[1])
	if title == "" {
		return nil
	}

	raw := ingest.RawOpportunity{
		PlatformID: id,
		Title:      title,
		URL:        eventURL,
		Platform:   models.PlatformZapplication,
		ScrapedAt:  time.Now().UTC(),
		Extra:      map[string]any{"event_type": "fair"},
	}

	for _, re := range zappDeadlineRes {
		if dm := re.FindStringSubmatch(page); dm != nil {
			raw.Deadline = strings.TrimSpace(dm[1])
			break
		}
	}

	if fm := zappAppFeeRe.FindStringSubmatch(page); fm != nil {
		raw.Fee = "$" + fm[1]
	}
	if bm := zappBoothFeeRe.FindStringSubmatch(page); bm != nil {
		raw.Extra["booth_fee"] = "$" + bm[1]
	}

	// Event dates hide inside an escaped JS string blob.
	if gm := zappGeneralRe.FindStringSubmatch(page); gm != nil {
		info := strings.NewReplacer(`\"`, `"`, `\/`, `/`, `\r\n`, "\n").Replace(gm[1])
		for _, re := range zappDatesRes {
			if dm := re.FindStringSubmatch(info); dm != nil {
				raw.Extra["event_dates"] = strings.TrimSpace(dm[1])
				break
			}
		}
	}

	if lm := zappLocationRe.FindStringSubmatch(page); lm != nil && !strings.HasPrefix(lm[1], "{{") {
		raw.Location = lm[1]
	}

	// The event name usually carries its organization.
	if om := zappByOrgRe.FindStringSubmatch(title); om != nil {
		raw.Organization = strings.TrimSpace(om[1])
	} else if host, _, found := strings.Cut(title, "-"); found {
		raw.Organization = strings.TrimSpace(host)
	}

	return &raw
}
