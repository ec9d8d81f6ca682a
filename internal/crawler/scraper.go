package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/logger"
	"github.com/Adda-Baaj/newsclip/pkg/httpclient"
	"github.com/Adda-Baaj/newsclip/pkg/providers"
)

const (
	maxHTMLBodyBytes  = 1 << 20 // 1 MiB
	maxArticleWorkers = 10
)

// Scraper fills missing candidate content by scraping the article page metadata.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
	delay  time.Duration
}

var _ providers.Enricher = (*Scraper)(nil)

// NewScraper creates a new Scraper with the given HTTP client and logger.
// delay spaces out page requests; zero disables the limiter.
func NewScraper(client httpclient.Client, log logger.Logger, delay time.Duration) *Scraper {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scraper{client: client, log: log, delay: delay}
}

// Enrich visits each candidate lacking content and copies the page description into it.
// Candidates that fail to load are returned unchanged.
func (s *Scraper) Enrich(ctx context.Context, userAgent string, candidates []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates) // default to originals so partial results are returned on cancel

	pending := make([]int, 0, len(candidates))
	for idx, c := range candidates {
		if strings.TrimSpace(c.Content) == "" {
			pending = append(pending, idx)
		}
	}
	if len(pending) == 0 {
		return out
	}

	workerCount := min(len(pending), maxArticleWorkers)

	var limiter <-chan time.Time
	if s.delay > 0 {
		ticker := time.NewTicker(s.delay)
		limiter = ticker.C
		defer ticker.Stop()
	}

	headers := providers.Headers(userAgent, "text/html")
	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := range workerCount {
		wg.Add(1)
		go s.articleWorker(ctx, headers, candidates, limiter, jobCh, out, &wg, workerID)
	}

	for _, idx := range pending {
		if ctx.Err() != nil {
			break
		}
		jobCh <- idx
	}
	close(jobCh)

	wg.Wait()

	return out
}

// articleWorker processes candidates from the job channel, respecting the rate limiter.
func (s *Scraper) articleWorker(
	ctx context.Context,
	headers map[string]string,
	candidates []domain.Candidate,
	limiter <-chan time.Time,
	jobCh <-chan int,
	out []domain.Candidate,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			continue
		}

		if limiter != nil {
			select {
			case <-ctx.Done():
				continue
			case <-limiter:
			}
		}

		c := candidates[idx]
		enriched, err := s.fetchAndParse(ctx, headers, c, workerID)
		if err != nil {
			s.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
				"worker_id": workerID,
				"source":    c.Source,
				"url":       c.URL,
				"error":     err.Error(),
			})
			continue
		}
		out[idx] = enriched
	}
}

// fetchAndParse fetches the article HTML and copies its description into the candidate.
func (s *Scraper) fetchAndParse(ctx context.Context, headers map[string]string, c domain.Candidate, workerID int) (domain.Candidate, error) {
	s.log.DebugObj("scraping article metadata", "scrape_start", map[string]any{
		"worker_id": workerID,
		"url":       c.URL,
	})

	resp, err := s.client.Get(ctx, c.URL, headers)
	if err != nil {
		return c, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return c, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		s.log.InfoObj("html body truncated", "truncation", map[string]any{
			"worker_id": workerID,
			"url":       c.URL,
			"original":  len(body),
			"kept":      maxHTMLBodyBytes,
		})
		body = body[:maxHTMLBodyBytes]
	}

	desc, err := parseDescription(body)
	if err != nil {
		return c, err
	}
	if desc != "" {
		c.Content = desc
	}
	return c, nil
}

// parseDescription returns the og:description, falling back to the meta description.
func parseDescription(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return firstNonEmpty(
		extract(`meta[property="og:description"]`),
		extract(`meta[name="description"]`),
	), nil
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
