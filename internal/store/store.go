// Package store defines the persistence contract shared by the bolt and sqlite backends.
package store

import (
	"context"
	"errors"

	"github.com/Adda-Baaj/newsclip/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate marks a uniqueness conflict; callers treat it as benign.
	ErrDuplicate = errors.New("duplicate record")
)

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	ClientID        *int64
	IncludeExcluded bool
	Limit           int
}

// LogFilter narrows ListLogs. Results are newest first.
type LogFilter struct {
	ClientID *int64
	Level    domain.Level
	Limit    int
}

// Store is implemented by every persistence backend.
type Store interface {
	ListClients(ctx context.Context, id *int64) ([]domain.Client, error)
	UpsertClient(ctx context.Context, c domain.Client) (domain.Client, error)

	ListSources(ctx context.Context) ([]domain.Source, error)
	ListActiveSources(ctx context.Context) ([]domain.Source, error)
	UpsertSource(ctx context.Context, s domain.Source) (domain.Source, bool, error)

	// TryInsert stores the article unless its URL is already present.
	// It reports false (and no error) when the URL existed.
	TryInsert(ctx context.Context, a domain.Article) (domain.Article, bool, error)
	UpdateDerived(ctx context.Context, id int64, summary, topic, searchText string) error
	SetExcluded(ctx context.Context, id int64, excluded bool) error
	GetArticle(ctx context.Context, id int64) (domain.Article, error)
	ListArticles(ctx context.Context, f ArticleFilter) ([]domain.Article, error)
	ForEachArticle(ctx context.Context, fn func(domain.Article) error) error

	Append(ctx context.Context, e domain.FetchLogEntry) error
	ListLogs(ctx context.Context, f LogFilter) ([]domain.FetchLogEntry, error)

	Close() error
}

// SearchText is the searchable surrogate persisted alongside each article.
func SearchText(title, summary, content string) string {
	return title + " " + summary + " " + content
}
