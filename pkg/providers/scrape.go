package providers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/newsclip/internal/domain"
)

const scrapeDefaultUserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

// ScrapeOptions configures the registered HTML scrape fetcher.
type ScrapeOptions struct {
	UserAgent string
	Enricher  Enricher
}

// scrapeFetcher implements Fetcher for listing pages described by CSS selectors.
type scrapeFetcher struct {
	client HTTPClient
	opts   ScrapeOptions
}

// NewScrapeFetcher builds the registered scrape fetcher.
func NewScrapeFetcher(client HTTPClient, opts ScrapeOptions) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	opts.UserAgent = firstNonEmpty(opts.UserAgent, scrapeDefaultUserAgent)
	return &scrapeFetcher{client: client, opts: opts}
}

func (f *scrapeFetcher) ID() string {
	return string(domain.SourceKindScrape)
}

// Fetch selects title elements, keeps the ones mentioning a keyword and
// resolves each to a link. Scraped candidates carry no publish date.
func (f *scrapeFetcher) Fetch(ctx context.Context, req Request, sink Sink) (int, error) {
	src := req.Source
	if src == nil || strings.TrimSpace(src.URL) == "" {
		return 0, fmt.Errorf("scrape fetcher requires a source with a url")
	}
	if strings.TrimSpace(src.TitleSelector) == "" {
		return 0, nil
	}

	body, err := fetchBody(ctx, f.client, src.URL, "scrape "+src.Name, Headers(f.opts.UserAgent, acceptHTML))
	if err != nil {
		return 0, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("parse html for %s: %w", src.Name, err)
	}

	candidates := extractHeadlines(doc, *src, req.Keywords)
	if f.opts.Enricher != nil && len(candidates) > 0 {
		candidates = f.opts.Enricher.Enrich(ctx, f.opts.UserAgent, candidates)
	}

	count := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		sink.Accept(ctx, c)
		count++
	}
	return count, nil
}

// extractHeadlines applies the source's selectors to the listing page.
func extractHeadlines(doc *goquery.Document, src domain.Source, keywords []string) []domain.Candidate {
	var out []domain.Candidate
	doc.Find(src.TitleSelector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.Join(strings.Fields(sel.Text()), " ")
		if title == "" || !titleMatches(title, keywords) {
			return
		}

		href := linkFor(sel, src.LinkSelector)
		link := resolveURL(href, src.URL)
		if link == "" || strings.HasPrefix(strings.ToLower(link), "javascript:") {
			return
		}

		out = append(out, domain.Candidate{
			Title:  title,
			URL:    link,
			Source: sourceName(&src, src.URL),
		})
	})
	return out
}

// linkFor finds the href for a title element: the element itself when it is
// an anchor, else the closest ancestor anchor, else the first descendant
// anchor, else the link selector scoped to the element.
func linkFor(sel *goquery.Selection, linkSelector string) string {
	if goquery.NodeName(sel) == "a" {
		if href, ok := sel.Attr("href"); ok {
			return href
		}
	}
	if parent := sel.Closest("a"); parent.Length() > 0 {
		if href, ok := parent.Attr("href"); ok {
			return href
		}
	}
	if child := sel.Find("a[href]").First(); child.Length() > 0 {
		return child.AttrOr("href", "")
	}
	if linkSelector = strings.TrimSpace(linkSelector); linkSelector != "" {
		scoped := sel.Find(linkSelector).First()
		if scoped.Length() == 0 {
			scoped = sel.Parent().Find(linkSelector).First()
		}
		if href, ok := scoped.Attr("href"); ok {
			return href
		}
		return scoped.Find("a[href]").First().AttrOr("href", "")
	}
	return ""
}
