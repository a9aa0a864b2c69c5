package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/Third-South-Capital/callscrape/internal/ingest"
)

// Scraper fetches the current listings from one platform.
type Scraper interface {
	Platform() string
	Fetch(ctx context.Context) ([]ingest.RawOpportunity, error)
}

// Fetcher wraps Colly with rate limiting and retries. One instance is
// shared by all scrapers; per-domain delays keep us polite.
type Fetcher struct {
	UserAgent      string
	MaxRetries     int
	RequestTimeout time.Duration
	DomainDelay    time.Duration
}

// NewFetcher returns a Fetcher with defaults tuned for the five platforms.
func NewFetcher() *Fetcher {
	return &Fetcher{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MaxRetries:     3,
		RequestTimeout: 30 * time.Second,
		DomainDelay:    1 * time.Second,
	}
}

func (f *Fetcher) collector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       f.DomainDelay,
		RandomDelay: f.DomainDelay / 2,
	})
	c.SetRequestTimeout(f.RequestTimeout)
	return c
}

// run executes one request through a fresh collector, retrying transient
// failures with linear backoff.
func (f *Fetcher) run(ctx context.Context, headers map[string]string, visit func(c *colly.Collector) error) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector()

	var body []byte
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		retries, _ := r.Request.Ctx.GetAny("retries").(int)
		if retries < f.MaxRetries && ctx.Err() == nil {
			r.Request.Ctx.Put("retries", retries+1)
			log.Printf("[fetch] retry %d/%d for %s: %v", retries+1, f.MaxRetries, r.Request.URL, err)
			time.Sleep(time.Duration(retries+1) * time.Second)
			r.Request.Retry()
			return
		}
		fetchErr = fmt.Errorf("fetch failed after %d retries: %w", retries, err)
	})

	if err := visit(c); err != nil {
		return nil, fmt.Errorf("visit failed: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if body == nil {
		return nil, fmt.Errorf("no response received")
	}
	return body, nil
}

// Get fetches a URL and returns the raw body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return f.run(ctx, nil, func(c *colly.Collector) error {
		return c.Visit(url)
	})
}

// PostForm sends a form POST and returns the raw body.
func (f *Fetcher) PostForm(ctx context.Context, url string, form map[string]string, headers map[string]string) ([]byte, error) {
	return f.run(ctx, headers, func(c *colly.Collector) error {
		return c.Post(url, form)
	})
}

// GetDocument fetches a URL and parses the body as HTML.
func (f *Fetcher) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
