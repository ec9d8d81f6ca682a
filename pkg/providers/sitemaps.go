package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/logger"
	"github.com/Adda-Baaj/newsclip/internal/textutil"
)

const maxSitemapDepth = 3

// SitemapOptions configures the Google News sitemap fetcher.
type SitemapOptions struct {
	UserAgent string
	Log       logger.Logger
}

type googleNewsSitemap struct {
	URLs []googleNewsURL `xml:"url"`
}

type googleNewsURL struct {
	Loc  string           `xml:"loc"`
	News googleNewsDetail `xml:"news"`
}

type googleNewsDetail struct {
	Publication     googleNewsPublication `xml:"publication"`
	PublicationDate string                `xml:"publication_date"`
	Keywords        string                `xml:"keywords"`
	Title           string                `xml:"title"`
}

type googleNewsPublication struct {
	Name string `xml:"name"`
}

type sitemapIndex struct {
	Sitemaps []sitemapIndexEntry `xml:"sitemap"`
}

type sitemapIndexEntry struct {
	Loc string `xml:"loc"`
}

// sitemapFetcher implements Fetcher for registered Google News sitemaps.
type sitemapFetcher struct {
	client HTTPClient
	opts   SitemapOptions
}

// NewSitemapFetcher builds a fetcher for news sitemaps and sitemap indexes.
func NewSitemapFetcher(client HTTPClient, opts SitemapOptions) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if opts.Log == nil {
		opts.Log = logger.NopLogger{}
	}
	return &sitemapFetcher{client: client, opts: opts}
}

func (f *sitemapFetcher) ID() string {
	return string(domain.SourceKindSitemap)
}

// Fetch walks the sitemap (following indexes) and forwards entries whose title
// or news keywords mention a client keyword and whose publication date is not older than req.Since.
func (f *sitemapFetcher) Fetch(ctx context.Context, req Request, sink Sink) (int, error) {
	src := req.Source
	if src == nil || strings.TrimSpace(src.URL) == "" {
		return 0, fmt.Errorf("sitemap fetcher requires a source with a url")
	}

	urls, err := f.fetchGoogleNewsURLs(ctx, src, src.URL, Headers(f.opts.UserAgent, acceptFeed), nil, 0)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, c := range buildCandidatesFromSitemap(src, urls, req.Keywords, req.Since) {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		sink.Accept(ctx, c)
		count++
	}
	return count, nil
}

// fetchGoogleNewsURLs resolves the given sitemap URL into article entries, following sitemap indexes if necessary.
func (f *sitemapFetcher) fetchGoogleNewsURLs(ctx context.Context, src *domain.Source, loc string, headers map[string]string, visited map[string]struct{}, depth int) ([]googleNewsURL, error) {
	if visited == nil {
		visited = make(map[string]struct{})
	}
	if _, seen := visited[loc]; seen || depth > maxSitemapDepth {
		return nil, nil
	}
	visited[loc] = struct{}{}

	raw, err := fetchBody(ctx, f.client, loc, "sitemap "+src.Name, headers)
	if err != nil {
		return nil, err
	}

	urls, err := parseGoogleNewsSitemap(raw)
	if err != nil {
		return nil, fmt.Errorf("decode google news sitemap: %w", err)
	}
	if len(urls) > 0 {
		return urls, nil
	}

	indexURLs, err := parseSitemapIndex(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sitemap index: %w", err)
	}

	var (
		all      []googleNewsURL
		firstErr error
		failed   int
	)
	for _, indexURL := range indexURLs {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
		child := resolveURL(indexURL, loc)
		nested, err := f.fetchGoogleNewsURLs(ctx, src, child, headers, visited, depth+1)
		if err != nil {
			f.opts.Log.WarnObj("nested sitemap skipped", "sitemap_child_failed", map[string]any{
				"source":  src.Name,
				"sitemap": child,
				"error":   err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
			failed++
			continue
		}
		all = append(all, nested...)
	}
	if failed > 0 && failed == len(indexURLs) {
		return nil, fmt.Errorf("all %d nested sitemaps failed: %w", failed, firstErr)
	}
	return all, nil
}

// parseGoogleNewsSitemap parses the XML data into a slice of googleNewsURL structs.
func parseGoogleNewsSitemap(data []byte) ([]googleNewsURL, error) {
	var sitemap googleNewsSitemap
	if err := xml.Unmarshal(data, &sitemap); err != nil {
		return nil, err
	}
	return sitemap.URLs, nil
}

// parseSitemapIndex parses an XML sitemap index file and returns the nested sitemap URLs.
func parseSitemapIndex(data []byte) ([]string, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(index.Sitemaps))
	for _, entry := range index.Sitemaps {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

// buildCandidatesFromSitemap filters sitemap entries and maps them to candidates.
func buildCandidatesFromSitemap(src *domain.Source, urls []googleNewsURL, keywords []string, since time.Time) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(urls))
	for _, entry := range urls {
		loc := strings.TrimSpace(entry.Loc)
		title := strings.TrimSpace(entry.News.Title)
		if loc == "" || title == "" {
			continue
		}
		if !titleMatches(title, keywords) && !titleMatches(entry.News.Keywords, keywords) {
			continue
		}

		rawDate := strings.TrimSpace(entry.News.PublicationDate)
		if t, err := textutil.ParseDate(rawDate); err == nil && t.Before(since) {
			continue
		}

		out = append(out, domain.Candidate{
			Title:   title,
			URL:     loc,
			RawDate: rawDate,
			Source:  firstNonEmpty(entry.News.Publication.Name, src.Name),
		})
	}
	return out
}
