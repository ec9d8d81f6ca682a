package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/textutil"
)

const (
	defaultUserAgent = "newsclip/1.0 (+https://github.com/Adda-Baaj/newsclip)"
	acceptFeed       = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"
	acceptHTML       = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"
	acceptJSON       = "application/json"
)

// Headers builds the request headers for a fetch.
func Headers(userAgent, accept string) map[string]string {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	h := map[string]string{"User-Agent": userAgent}
	if accept != "" {
		h["Accept"] = accept
	}
	return h
}

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// fetchBody performs a GET and fails on any non-200 status.
func fetchBody(ctx context.Context, client HTTPClient, rawURL, label string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, rawURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", label, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d body: %s", label, resp.StatusCode(), responseSnippet(body))
	}

	return body, nil
}

// newFeedParser returns a gofeed parser that keeps the RSS <source> label.
func newFeedParser() *gofeed.Parser {
	fp := gofeed.NewParser()
	fp.RSSTranslator = &sourceTranslator{}
	return fp
}

// parseFeed decodes an RSS/Atom/JSON feed body.
func parseFeed(body []byte, label string) (*gofeed.Feed, error) {
	feed, err := newFeedParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", label, err)
	}
	return feed, nil
}

// feedText returns the first non-empty body of a feed entry: full content, then description/summary.
func feedText(item *gofeed.Item) string {
	if item == nil {
		return ""
	}
	accessors := []func(*gofeed.Item) string{
		func(i *gofeed.Item) string { return i.Content },
		func(i *gofeed.Item) string { return i.Description },
	}
	for _, get := range accessors {
		if v := strings.TrimSpace(get(item)); v != "" {
			return v
		}
	}
	return ""
}

// entryTime returns the published time, then updated time, then now.
func entryTime(item *gofeed.Item, now time.Time) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	}
	return now
}

// entrySource returns the <source> label kept by sourceTranslator.
func entrySource(item *gofeed.Item) string {
	if item == nil || item.Custom == nil {
		return ""
	}
	return strings.TrimSpace(item.Custom[customSourceKey])
}

// titleMatches reports whether the title contains any keyword, ignoring case and accents.
func titleMatches(title string, keywords []string) bool {
	return textutil.ContainsAny(textutil.StripAccents(title), keywords)
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

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}

	return baseURL.ResolveReference(parsed).String()
}

// sourceName is the label stored for candidates of a registered source.
func sourceName(src *domain.Source, fallback string) string {
	if src == nil {
		return fallback
	}
	return firstNonEmpty(src.Name, fallback)
}
