package providers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/pkg/httpclient"
)

type fetcherRegistry struct {
	fetchers map[string]Fetcher
	mu       sync.RWMutex
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{
		fetchers: make(map[string]Fetcher, len(fetchers)),
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		reg.fetchers[strings.ToLower(strings.TrimSpace(f.ID()))] = f
	}

	return reg
}

// ByID returns the fetcher registered under id.
func (r *fetcherRegistry) ByID(id string) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fetchers[strings.ToLower(strings.TrimSpace(id))]
	return f, ok
}

// FetcherFor selects the fetcher for a registered source based on its kind.
// This is the single dispatch point over domain.SourceKind.
func (r *fetcherRegistry) FetcherFor(src domain.Source) (Fetcher, error) {
	switch src.Kind {
	case domain.SourceKindFeed, domain.SourceKindScrape, domain.SourceKindSitemap:
	case domain.SourceKindAPI:
		return nil, fmt.Errorf("source %q: api sources are configured, not registered", src.Name)
	case "":
		return nil, fmt.Errorf("source %q has no kind", src.Name)
	default:
		return nil, fmt.Errorf("source %q has unknown kind %q", src.Name, src.Kind)
	}

	if f, ok := r.ByID(string(src.Kind)); ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for source kind %q", src.Kind)
}

// DefaultHTTPClient returns a tuned client for provider fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(20 * time.Second) }

// Options carries the settings for DefaultFetcherRegistry.
type Options struct {
	Credentials Credentials
	NewsAPI     NewsAPIOptions
	NewsData    NewsDataOptions
	GoogleNews  GoogleNewsOptions
	Feed        FeedOptions
	Scrape      ScrapeOptions
	Sitemap     SitemapOptions
}

// DefaultFetcherRegistry wires up every known fetcher. apiClient is used for
// the paid APIs, client for everything else.
func DefaultFetcherRegistry(client, apiClient HTTPClient, opts Options) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if apiClient == nil {
		apiClient = client
	}

	return NewFetcherRegistry(
		NewNewsAPIFetcher(apiClient, opts.Credentials, opts.NewsAPI),
		NewNewsDataFetcher(apiClient, opts.Credentials, opts.NewsData),
		NewGoogleNewsFetcher(client, opts.GoogleNews),
		NewFeedFetcher(client, opts.Feed),
		NewScrapeFetcher(client, opts.Scrape),
		NewSitemapFetcher(client, opts.Sitemap),
	)
}
