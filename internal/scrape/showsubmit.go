package scrape

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Third-South-Capital/callscrape/internal/ingest"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

// ShowSubmitScraper walks the ShowSubmit.com open-calls listing and follows
// each show's detail page. Listing rows carry deadline text without a year;
// the detail pass fills that in.
type ShowSubmitScraper struct {
	fetcher *Fetcher
	cfg     SourceConfig
	now     func() time.Time
}

func NewShowSubmitScraper(fetcher *Fetcher, cfg SourceConfig) *ShowSubmitScraper {
	return &ShowSubmitScraper{fetcher: fetcher, cfg: cfg, now: time.Now}
}

func (s *ShowSubmitScraper) Platform() string { return models.PlatformShowSubmit }

func (s *ShowSubmitScraper) Fetch(ctx context.Context) ([]ingest.RawOpportunity, error) {
	doc, err := s.fetcher.GetDocument(ctx, s.cfg.BaseURL+"/open-calls")
	if err != nil {
		return nil, fmt.Errorf("showsubmit listing fetch: %w", err)
	}

	raws := parseShowSubmitListing(doc, s.cfg.BaseURL, s.now())

	if s.cfg.FetchDetails {
		for i := range raws {
			if err := ctx.Err(); err != nil {
				return raws, err
			}
			detailDoc, err := s.fetcher.GetDocument(ctx, raws[i].URL)
			if err != nil {
				log.Printf("[showsubmit] detail fetch %s: %v", raws[i].URL, err)
				continue
			}
			applyShowSubmitDetail(&raws[i], detailDoc, s.now())
		}
	}

	log.Printf("[showsubmit] fetched %d opportunities", len(raws))
	return raws, nil
}

func parseShowSubmitListing(doc *goquery.Document, baseURL string, now time.Time) []ingest.RawOpportunity {
	scraped := now.UTC()
	seen := map[string]bool{}
	var raws []ingest.RawOpportunity

	doc.Find(`a[href*="/show/"]`).Each(func(_ int, link *goquery.Selection) {
		showURL, _ := link.Attr("href")
		if showURL == "" {
			return
		}
		if !strings.HasPrefix(showURL, "http") {
			showURL = baseURL + showURL
		}
		if seen[showURL] {
			return
		}
		seen[showURL] = true

		container := showContainer(link)
		if container == nil {
			return
		}

		title := strings.TrimSpace(container.Find("p.show-title").First().Text())
		if title == "" {
			return
		}

		raw := ingest.RawOpportunity{
			Title:        title,
			Organization: strings.TrimSpace(container.Find("p.org-heading").First().Text()),
			URL:          showURL,
			Platform:     models.PlatformShowSubmit,
			Deadline:     listingDeadline(container, now),
			ScrapedAt:    scraped,
		}
		raws = append(raws, raw)
	})

	return raws
}

// showContainer climbs from a show link to the card that holds the title and
// organization, giving up after a few levels.
func showContainer(link *goquery.Selection) *goquery.Selection {
	node := link
	for i := 0; i < 5; i++ {
		node = node.Parent()
		if node.Length() == 0 {
			return nil
		}
		if node.Find("p.org-heading").Length() > 0 && node.Find("p.show-title").Length() > 0 {
			return node
		}
	}
	return nil
}

// listingDeadline pulls "Deadline: ..." text off a listing card, appending
// the current year when the card omits it.
func listingDeadline(container *goquery.Selection, now time.Time) string {
	text := container.Text()
	idx := strings.Index(text, "Deadline:")
	if idx < 0 {
		return ""
	}
	line := text[idx+len("Deadline:"):]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	year := fmt.Sprintf("%d", now.Year())
	if !strings.Contains(line, year) && !yearRe.MatchString(line) {
		line = line + ", " + year
	}
	return line
}

var (
	yearRe               = regexp.MustCompile(`\b20\d{2}\b`)
	detailDeadlineRes    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Deadline\s+is\s+([A-Za-z]+ \d{1,2}(?:st|nd|rd|th)?)`),
		regexp.MustCompile(`(?i)Deadline[:\s]+([A-Za-z]+ \d{1,2}(?:st|nd|rd|th)?)`),
	}
	detailDatedRe        = regexp.MustCompile(`[A-Za-z]+ \d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`)
	detailFeeRe          = regexp.MustCompile(`\$(\d+(?:\.\d{2})?)`)
	detailLocationRes    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Location[:\s]*([^,\n]+)`),
		regexp.MustCompile(`(?i)Gallery[:\s]*([^,\n]+)`),
	}
	showSubmitSkipPhrase = []string{"deadline", "entry fee", "email"}
)

// applyShowSubmitDetail overlays data scraped from a show's detail page.
func applyShowSubmitDetail(raw *ingest.RawOpportunity, doc *goquery.Document, now time.Time) {
	text := doc.Text()

	if deadline := showSubmitDeadline(text, now); deadline != "" {
		raw.Deadline = deadline
	}
	if m := detailFeeRe.FindStringSubmatch(text); m != nil {
		raw.Fee = "$" + m[1]
	}
	for _, re := range detailLocationRes {
		if m := re.FindStringSubmatch(text); m != nil {
			raw.Location = strings.TrimSpace(m[1])
			break
		}
	}
	if desc := showSubmitDescription(doc); desc != "" {
		raw.Description = desc
	}
}

// showSubmitDeadline extracts a dated deadline from detail-page prose. When
// the page only says "Deadline is September 15", the year is inferred: the
// current one, or the next if that month has already passed.
func showSubmitDeadline(text string, now time.Time) string {
	for _, re := range detailDeadlineRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		partial := m[1]
		month := strings.ToLower(strings.Fields(partial)[0])

		// Prefer a full date elsewhere on the page that names the same month.
		for _, dated := range detailDatedRe.FindAllString(text, -1) {
			if strings.Contains(strings.ToLower(dated), month) {
				return dated
			}
		}

		year := now.Year()
		if num, ok := monthNumbers[month]; ok && num < int(now.Month()) {
			year++
		}
		return fmt.Sprintf("%s, %d", partial, year)
	}
	return ""
}

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

// showSubmitDescription collects the first few substantial paragraphs,
// skipping boilerplate about deadlines and fees.
func showSubmitDescription(doc *goquery.Document) string {
	root := doc.Find("div.show-detail").First()
	if root.Length() == 0 {
		root = doc.Find("div.content").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var parts []string
	root.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if len(text) <= 50 {
			return true
		}
		lower := strings.ToLower(text)
		for _, skip := range showSubmitSkipPhrase {
			if strings.Contains(lower, skip) {
				return true
			}
		}
		parts = append(parts, strings.Join(strings.Fields(text), " "))
		return len(parts) < 3
	})

	return strings.Join(parts, " ")
}
