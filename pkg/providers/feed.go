package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/domain"
)

// FeedOptions configures the registered RSS/Atom fetcher.
type FeedOptions struct {
	UserAgent string
	Now       func() time.Time
}

// feedFetcher implements Fetcher for operator-registered RSS/Atom sources.
type feedFetcher struct {
	client HTTPClient
	opts   FeedOptions
}

// NewFeedFetcher builds the registered feed fetcher.
func NewFeedFetcher(client HTTPClient, opts FeedOptions) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &feedFetcher{client: client, opts: opts}
}

func (f *feedFetcher) ID() string {
	return string(domain.SourceKindFeed)
}

// Fetch forwards entries whose title mentions a keyword and that are not older than req.Since.
func (f *feedFetcher) Fetch(ctx context.Context, req Request, sink Sink) (int, error) {
	src := req.Source
	if src == nil || strings.TrimSpace(src.URL) == "" {
		return 0, fmt.Errorf("feed fetcher requires a source with a url")
	}

	body, err := fetchBody(ctx, f.client, src.URL, "feed "+src.Name, Headers(f.opts.UserAgent, acceptFeed))
	if err != nil {
		return 0, err
	}

	feed, err := parseFeed(body, src.Name)
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
		link := resolveURL(item.Link, src.URL)
		if title == "" || link == "" {
			continue
		}
		if !titleMatches(title, req.Keywords) {
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
			Source:  sourceName(src, feed.Title),
			Content: feedText(item),
		})
		count++
	}
	return count, nil
}
