package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/newsclip/internal/domain"
)

const (
	newsDataDefaultURL  = "https://newsdata.io/api/1/latest"
	newsDataSourceLabel = "NewsData.io"
)

// NewsDataOptions configures the latest-first paid API.
type NewsDataOptions struct {
	URL       string
	Language  string
	UserAgent string
}

type newsDataResponse struct {
	Status  string          `json:"status"`
	Results json.RawMessage `json:"results"`
}

type newsDataArticle struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	SourceURL   string `json:"source_url"`
	SourceID    string `json:"source_id"`
	Content     string `json:"content"`
	Description string `json:"description"`
	PubDate     string `json:"pubDate"`
}

type newsDataError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// newsDataFetcher implements Fetcher for the NewsData.io latest endpoint.
type newsDataFetcher struct {
	client HTTPClient
	creds  Credentials
	opts   NewsDataOptions
}

// NewNewsDataFetcher builds the NewsData fetcher.
func NewNewsDataFetcher(client HTTPClient, creds Credentials, opts NewsDataOptions) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	opts.URL = firstNonEmpty(opts.URL, newsDataDefaultURL)
	opts.Language = firstNonEmpty(opts.Language, "pt")
	return &newsDataFetcher{client: client, creds: creds, opts: opts}
}

func (f *newsDataFetcher) ID() string {
	return NewsDataID
}

// Fetch queries the latest articles. When the plan rejects the date range with
// a 422 it retries once without from_date/to_date.
func (f *newsDataFetcher) Fetch(ctx context.Context, req Request, sink Sink) (int, error) {
	key, ok := lookup(f.creds, NewsDataID)
	if !ok && !req.Force {
		return 0, nil
	}

	params := url.Values{}
	if key != "" {
		params.Set("apikey", key)
	}
	params.Set("q", req.Query)
	params.Set("language", f.opts.Language)
	params.Set("from_date", req.Since.UTC().Format(apiDateLayout))
	params.Set("to_date", req.Until.UTC().Format(apiDateLayout))

	headers := Headers(f.opts.UserAgent, acceptJSON)

	resp, err := f.client.Get(ctx, f.opts.URL+"?"+params.Encode(), headers)
	if err != nil {
		return 0, fmt.Errorf("fetch newsdata: %w", err)
	}

	if resp.StatusCode() == http.StatusUnprocessableEntity && strings.Contains(newsDataErrorMessage(resp.Body()), "from_date") {
		params.Del("from_date")
		params.Del("to_date")
		resp, err = f.client.Get(ctx, f.opts.URL+"?"+params.Encode(), headers)
		if err != nil {
			return 0, fmt.Errorf("fetch newsdata without date range: %w", err)
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("newsdata returned status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}

	var payload newsDataResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return 0, fmt.Errorf("decode newsdata response: %w", err)
	}
	if strings.EqualFold(payload.Status, "error") {
		return 0, fmt.Errorf("newsdata error: %s", newsDataErrorMessage(resp.Body()))
	}

	var articles []newsDataArticle
	if len(payload.Results) > 0 && string(payload.Results) != "null" {
		if err := json.Unmarshal(payload.Results, &articles); err != nil {
			return 0, fmt.Errorf("decode newsdata results: %w", err)
		}
	}

	count := 0
	for _, art := range articles {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		title := strings.TrimSpace(art.Title)
		link := firstNonEmpty(art.Link, art.SourceURL)
		if title == "" || link == "" {
			continue
		}
		sink.Accept(ctx, domain.Candidate{
			Title:   title,
			URL:     link,
			RawDate: art.PubDate,
			Source:  firstNonEmpty(art.SourceID, newsDataSourceLabel),
			Content: firstNonEmpty(paidOnly(art.Content), art.Description),
		})
		count++
	}
	return count, nil
}

// newsDataErrorMessage extracts results.message from an error payload, falling back to the raw body.
func newsDataErrorMessage(body []byte) string {
	var payload newsDataResponse
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Results) > 0 {
		var e newsDataError
		if err := json.Unmarshal(payload.Results, &e); err == nil && e.Message != "" {
			return e.Message
		}
	}
	return string(body)
}

// paidOnly blanks the placeholder NewsData returns for fields gated behind paid plans.
func paidOnly(v string) string {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(v)), "ONLY AVAILABLE IN") {
		return ""
	}
	return v
}
