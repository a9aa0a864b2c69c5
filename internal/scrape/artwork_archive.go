package scrape

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Third-South-Capital/callscrape/internal/ingest"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

// ArtworkArchiveScraper pages through artworkarchive.com/call-for-entry.
type ArtworkArchiveScraper struct {
	fetcher *Fetcher
	cfg     SourceConfig
}

func NewArtworkArchiveScraper(fetcher *Fetcher, cfg SourceConfig) *ArtworkArchiveScraper {
	return &ArtworkArchiveScraper{fetcher: fetcher, cfg: cfg}
}

func (s *ArtworkArchiveScraper) Platform() string { return models.PlatformArtworkArchive }

func (s *ArtworkArchiveScraper) Fetch(ctx context.Context) ([]ingest.RawOpportunity, error) {
	maxPages := s.cfg.MaxPages
	if maxPages == 0 {
		maxPages = 20
	}

	var raws []ingest.RawOpportunity
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return raws, err
		}

		pageURL := s.cfg.BaseURL + "/call-for-entry"
		if page > 1 {
			pageURL = fmt.Sprintf("%s?page=%d", pageURL, page)
		}

		doc, err := s.fetcher.GetDocument(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("artwork_archive listing fetch: %w", err)
			}
			log.Printf("[artwork_archive] page %d fetch: %v", page, err)
			break
		}

		pageRaws := parseArtworkArchivePage(doc, s.cfg.BaseURL)
		if len(pageRaws) == 0 {
			break
		}
		raws = append(raws, pageRaws...)
	}

	log.Printf("[artwork_archive] fetched %d opportunities", len(raws))
	return raws, nil
}

func parseArtworkArchivePage(doc *goquery.Document, baseURL string) []ingest.RawOpportunity {
	now := time.Now().UTC()
	var raws []ingest.RawOpportunity

	doc.Find("div.opportunity-container").Each(func(_ int, container *goquery.Selection) {
		title := strings.TrimSpace(container.Find("h2, h3, h4").First().Text())
		if title == "" {
			return
		}

		callURL := ""
		if anchor := container.Closest("a"); anchor.Length() > 0 {
			callURL, _ = anchor.Attr("href")
		}
		if callURL != "" && !strings.HasPrefix(callURL, "http") {
			callURL = baseURL + callURL
		}

		deadline := strings.TrimSpace(container.Find("p.opportunity-date").First().Text())
		// The date element sometimes tacks on an "Ends today" style second
		// line; keep only the date.
		if idx := strings.IndexByte(deadline, '\n'); idx >= 0 {
			deadline = strings.TrimSpace(deadline[:idx])
		}

		raw := ingest.RawOpportunity{
			Title:        title,
			Organization: strings.TrimSpace(container.Find("p.text-sm").First().Text()),
			URL:          callURL,
			Platform:     models.PlatformArtworkArchive,
			Deadline:     deadline,
			Location:     labeledSpanValue(container, "Location"),
			Fee:          labeledSpanValue(container, "Fee"),
			ScrapedAt:    now,
		}
		if badge := strings.TrimSpace(container.Find("span.badge").First().Text()); badge != "" {
			raw.Extra = map[string]any{"opportunity_type": badge}
		}
		raws = append(raws, raw)
	})

	return raws
}

// labeledSpanValue resolves `<span>Label</span> value` shapes: the value is
// the text node after the label span, or the parent's text with the label
// removed.
func labeledSpanValue(container *goquery.Selection, label string) string {
	var out string
	container.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if !strings.Contains(span.Text(), label) {
			return true
		}
		for node := span.Get(0).NextSibling; node != nil; node = node.NextSibling {
			if node.Type == html.TextNode {
				if text := strings.TrimSpace(node.Data); text != "" {
					out = text
					return false
				}
			}
		}
		parentText := strings.TrimSpace(span.Parent().Text())
		parentText = strings.ReplaceAll(parentText, "Entry "+label, "")
		parentText = strings.ReplaceAll(parentText, label, "")
		out = strings.TrimSpace(parentText)
		return false
	})
	return out
}
