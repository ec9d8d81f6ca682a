// Package providers holds the source adapters that turn remote payloads into candidates.
package providers

import (
	"context"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/pkg/httpclient"
)

// Built-in fetcher ids. Registered-source fetchers use their SourceKind as id.
const (
	NewsAPIID    = "newsapi"
	NewsDataID   = "newsdata"
	GoogleNewsID = "googlenews"
)

// HTTPClient is the transport used by every fetcher.
type HTTPClient = httpclient.Client

// Credentials resolves API keys by name. A missing key is not an error.
type Credentials interface {
	Lookup(name string) (string, bool)
}

// Request describes one fetch for one client.
type Request struct {
	Client   domain.Client
	Keywords []string
	Query    string
	Since    time.Time
	Until    time.Time
	Source   *domain.Source
	Force    bool
}

// Sink receives every candidate a fetcher produces.
type Sink interface {
	Accept(ctx context.Context, c domain.Candidate)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, c domain.Candidate)

// Accept calls f.
func (f SinkFunc) Accept(ctx context.Context, c domain.Candidate) { f(ctx, c) }

// Fetcher pulls candidates from one kind of source. It returns how many
// candidates it forwarded, or an error when the whole fetch failed.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, req Request, sink Sink) (int, error)
}

// FetcherRegistry resolves fetchers by id or by registered source kind.
type FetcherRegistry interface {
	ByID(id string) (Fetcher, bool)
	FetcherFor(src domain.Source) (Fetcher, error)
}

// Enricher fills missing candidate fields by visiting the article page.
type Enricher interface {
	Enrich(ctx context.Context, userAgent string, candidates []domain.Candidate) []domain.Candidate
}
