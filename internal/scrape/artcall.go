package scrape

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Third-South-Capital/callscrape/internal/ingest"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

// ArtCallScraper parses the ArtCall.org /calls listing. Each call lives on
// its own subdomain, which doubles as the organization name.
type ArtCallScraper struct {
	fetcher *Fetcher
	cfg     SourceConfig
}

func NewArtCallScraper(fetcher *Fetcher, cfg SourceConfig) *ArtCallScraper {
	return &ArtCallScraper{fetcher: fetcher, cfg: cfg}
}

func (s *ArtCallScraper) Platform() string { return models.PlatformArtCall }

func (s *ArtCallScraper) Fetch(ctx context.Context) ([]ingest.RawOpportunity, error) {
	doc, err := s.fetcher.GetDocument(ctx, s.cfg.BaseURL+"/calls")
	if err != nil {
		return nil, fmt.Errorf("artcall listing fetch: %w", err)
	}
	raws := parseArtCallListing(doc, s.cfg.BaseURL)
	log.Printf("[artcall] fetched %d opportunities", len(raws))
	return raws, nil
}

func parseArtCallListing(doc *goquery.Document, baseURL string) []ingest.RawOpportunity {
	now := time.Now().UTC()
	var raws []ingest.RawOpportunity

	doc.Find("div.row.mb-5").Each(func(_ int, row *goquery.Selection) {
		titleLink := row.Find("h3 a").First()
		if titleLink.Length() == 0 {
			return
		}
		callURL, _ := titleLink.Attr("href")
		if callURL == "" {
			return
		}
		if !strings.HasPrefix(callURL, "http") {
			callURL = baseURL + callURL
		}

		raw := ingest.RawOpportunity{
			Title:        strings.TrimSpace(titleLink.Text()),
			Organization: orgFromSubdomain(callURL),
			URL:          callURL,
			Platform:     models.PlatformArtCall,
			Deadline:     labeledSiblingText(row, "span.h6", "Entry Deadline:"),
			Fee:          labeledSiblingText(row, "span", "Entry Fee:"),
			Location:     strings.TrimSpace(row.Find("span.badge.bg-info").First().Text()),
			Eligibility:  labeledSiblingText(row, "span.h6", "Eligibility:"),
			ScrapedAt:    now,
		}
		if raw.Title == "" {
			return
		}
		raws = append(raws, raw)
	})

	return raws
}

// labeledSiblingText finds the first element matching sel whose text starts
// with label, and returns the text node that follows it. ArtCall renders
// `<span class="h6">Entry Deadline:</span> Jan 5, 2026` shapes throughout.
func labeledSiblingText(root *goquery.Selection, sel, label string) string {
	var out string
	root.Find(sel).EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if !strings.HasPrefix(strings.TrimSpace(span.Text()), label) {
			return true
		}
		for node := span.Get(0).NextSibling; node != nil; node = node.NextSibling {
			if node.Type == html.TextNode {
				if text := strings.TrimSpace(node.Data); text != "" {
					out = strings.Join(strings.Fields(text), " ")
					return false
				}
			}
		}
		return false
	})
	return out
}

// orgFromSubdomain turns "river-gallery.artcall.org" into "River Gallery".
func orgFromSubdomain(callURL string) string {
	parsed, err := url.Parse(callURL)
	if err != nil {
		return ""
	}
	sub, _, ok := strings.Cut(parsed.Host, ".")
	if !ok || sub == "www" || sub == "artcall" {
		return ""
	}
	words := strings.Split(sub, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
