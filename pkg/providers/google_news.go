package providers

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/query"
)

const (
	googleNewsDefaultURL = "https://news.google.com/rss/search"
	googleNewsLabel      = "Google News"
)

// GoogleNewsOptions configures the search-engine RSS fetcher.
type GoogleNewsOptions struct {
	URL       string
	HL        string
	GL        string
	CEID      string
	UserAgent string
	Now       func() time.Time
}

// googleNewsFetcher implements Fetcher for the Google News RSS search endpoint.
type googleNewsFetcher struct {
	client HTTPClient
	opts   GoogleNewsOptions
}

// NewGoogleNewsFetcher builds the dynamic search RSS fetcher.
func NewGoogleNewsFetcher(client HTTPClient, opts GoogleNewsOptions) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	opts.URL = firstNonEmpty(opts.URL, googleNewsDefaultURL)
	opts.HL = firstNonEmpty(opts.HL, "pt-BR")
	opts.GL = firstNonEmpty(opts.GL, "BR")
	opts.CEID = firstNonEmpty(opts.CEID, "BR:pt-BR")
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &googleNewsFetcher{client: client, opts: opts}
}

// ID returns the id of the Google News fetcher.
func (f *googleNewsFetcher) ID() string {
	return GoogleNewsID
}

// SearchURL builds the RSS search URL for the given keywords.
func (f *googleNewsFetcher) SearchURL(keywords []string) string {
	return f.opts.URL +
		"?hl=" + url.QueryEscape(f.opts.HL) +
		"&gl=" + url.QueryEscape(f.opts.GL) +
		"&ceid=" + url.QueryEscape(f.opts.CEID) +
		"&q=" + url.QueryEscape(query.Quoted(keywords))
}

// Fetch runs the keyword search and forwards entries newer than req.Since.
// Entries are not filtered by title; the search engine already matched the body.
func (f *googleNewsFetcher) Fetch(ctx context.Context, req Request, sink Sink) (int, error) {
	if len(req.Keywords) == 0 {
		return 0, nil
	}

	body, err := fetchBody(ctx, f.client, f.SearchURL(req.Keywords), "google news rss", Headers(f.opts.UserAgent, acceptFeed))
	if err != nil {
		return 0, err
	}

	feed, err := parseFeed(body, "google news")
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range feed.Items {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		if item == nil {
			continue
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		published := entryTime(item, f.opts.Now().UTC())
		if published.Before(req.Since) {
			continue
		}

		sink.Accept(ctx, domain.Candidate{
			Title:   title,
			URL:     link,
			RawDate: published.Format(time.RFC3339),
			Source:  firstNonEmpty(entrySource(item), googleNewsLabel),
			Content: feedText(item),
		})
		count++
	}
	return count, nil
}
