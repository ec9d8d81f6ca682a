package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/newsclip/internal/domain"
)

const (
	newsAPIDefaultURL      = "https://newsapi.org/v2/everything"
	newsAPIDefaultMaxDays  = 30
	newsAPIDefaultPageSize = 100
	newsAPISourceLabel     = "NewsAPI"
	apiDateLayout          = "2006-01-02"
)

// NewsAPIOptions configures the relevancy-ranked paid API.
type NewsAPIOptions struct {
	URL       string
	Language  string
	MaxDays   int
	PageSize  int
	UserAgent string
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PublishedAt string `json:"publishedAt"`
}

// newsAPIFetcher implements Fetcher for the NewsAPI "everything" endpoint.
type newsAPIFetcher struct {
	client HTTPClient
	creds  Credentials
	opts   NewsAPIOptions
}

// NewNewsAPIFetcher builds the NewsAPI fetcher.
func NewNewsAPIFetcher(client HTTPClient, creds Credentials, opts NewsAPIOptions) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	opts.URL = firstNonEmpty(opts.URL, newsAPIDefaultURL)
	opts.Language = firstNonEmpty(opts.Language, "pt")
	if opts.MaxDays <= 0 {
		opts.MaxDays = newsAPIDefaultMaxDays
	}
	if opts.PageSize <= 0 {
		opts.PageSize = newsAPIDefaultPageSize
	}
	return &newsAPIFetcher{client: client, creds: creds, opts: opts}
}

func (f *newsAPIFetcher) ID() string {
	return NewsAPIID
}

// Fetch queries articles for the client's boolean query, ranked by relevancy.
// Without a key the fetch is a no-op unless forced.
func (f *newsAPIFetcher) Fetch(ctx context.Context, req Request, sink Sink) (int, error) {
	key, ok := lookup(f.creds, NewsAPIID)
	if !ok && !req.Force {
		return 0, nil
	}
	if strings.TrimSpace(req.Query) == "" {
		return 0, nil
	}

	from := req.Since
	if floor := req.Until.AddDate(0, 0, -f.opts.MaxDays); from.Before(floor) {
		from = floor
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("from", from.UTC().Format(apiDateLayout))
	params.Set("to", req.Until.UTC().Format(apiDateLayout))
	params.Set("language", f.opts.Language)
	params.Set("sortBy", "relevancy")
	params.Set("pageSize", strconv.Itoa(f.opts.PageSize))
	if domains := joinDomains(req.Client.Domains); domains != "" {
		params.Set("domains", domains)
	}

	headers := Headers(f.opts.UserAgent, acceptJSON)
	if key != "" {
		headers["X-Api-Key"] = key
	}

	body, err := fetchBody(ctx, f.client, f.opts.URL+"?"+params.Encode(), "newsapi", headers)
	if err != nil {
		return 0, err
	}

	var payload newsAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode newsapi response: %w", err)
	}
	if strings.EqualFold(payload.Status, "error") {
		return 0, fmt.Errorf("newsapi error %s: %s", payload.Code, payload.Message)
	}

	count := 0
	for _, art := range payload.Articles {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		title := strings.TrimSpace(art.Title)
		link := strings.TrimSpace(art.URL)
		if title == "" || link == "" {
			continue
		}
		sink.Accept(ctx, domain.Candidate{
			Title:   title,
			URL:     link,
			RawDate: art.PublishedAt,
			Source:  firstNonEmpty(art.Source.Name, newsAPISourceLabel),
			Content: art.Description,
		})
		count++
	}
	return count, nil
}

func lookup(creds Credentials, name string) (string, bool) {
	if creds == nil {
		return "", false
	}
	return creds.Lookup(name)
}

func joinDomains(domains []string) string {
	parts := make([]string, 0, len(domains))
	for _, d := range domains {
		for _, p := range strings.Split(d, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	}
	return strings.Join(parts, ",")
}
