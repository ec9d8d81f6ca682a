package ingest

import (
	"context"
	"fmt"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/logger"
	"github.com/Adda-Baaj/newsclip/internal/store"
)

// ReindexStore is what the reindex pass reads and writes.
type ReindexStore interface {
	ForEachArticle(ctx context.Context, fn func(domain.Article) error) error
	UpdateDerived(ctx context.Context, id int64, summary, topic, searchText string) error
}

// Reindexer recomputes the search text of every stored article.
type Reindexer struct {
	store ReindexStore
	log   logger.Logger
}

// NewReindexer builds a Reindexer.
func NewReindexer(st ReindexStore, log logger.Logger) *Reindexer {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Reindexer{store: st, log: log}
}

// Run rewrites search text where it differs and returns how many articles changed.
func (r *Reindexer) Run(ctx context.Context) (int, error) {
	var updated int
	err := r.store.ForEachArticle(ctx, func(a domain.Article) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := store.SearchText(a.Title, a.Summary, a.Content)
		if text == a.SearchText {
			return nil
		}
		if err := r.store.UpdateDerived(ctx, a.ID, a.Summary, a.Topic, text); err != nil {
			return fmt.Errorf("reindex article %d: %w", a.ID, err)
		}
		updated++
		return nil
	})
	if err != nil {
		return updated, err
	}
	r.log.InfoObj("search text reindexed", "reindex_done", map[string]any{"updated": updated})
	return updated, nil
}
