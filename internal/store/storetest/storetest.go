// Package storetest holds the behaviour suite every store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/store"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run exercises the full store contract.
func Run(t *testing.T, open Factory) {
	t.Run("clients", func(t *testing.T) { testClients(t, open(t)) })
	t.Run("sources", func(t *testing.T) { testSources(t, open(t)) })
	t.Run("insert dedup", func(t *testing.T) { testInsertDedup(t, open(t)) })
	t.Run("concurrent insert", func(t *testing.T) { testConcurrentInsert(t, open(t)) })
	t.Run("derived and excluded", func(t *testing.T) { testDerived(t, open(t)) })
	t.Run("logs", func(t *testing.T) { testLogs(t, open(t)) })
}

func testClients(t *testing.T, s store.Store) {
	ctx := context.Background()

	a, err := s.UpsertClient(ctx, domain.Client{
		Name:      "Acme",
		Keywords:  []string{"eleição", "copa do mundo"},
		Domains:   []string{"g1.globo.com"},
		Operators: map[string]string{"eleição": "AND"},
	})
	require.NoError(t, err)
	require.NotZero(t, a.ID)

	b, err := s.UpsertClient(ctx, domain.Client{Name: "Beta", Keywords: []string{"saúde"}})
	require.NoError(t, err)

	again, err := s.UpsertClient(ctx, domain.Client{Name: "Acme", Keywords: []string{"inflação"}})
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)

	all, err := s.ListClients(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme", all[0].Name)
	assert.Equal(t, []string{"inflação"}, all[0].Keywords)

	one, err := s.ListClients(ctx, &b.ID)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "Beta", one[0].Name)

	missing := int64(9999)
	none, err := s.ListClients(ctx, &missing)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSources(t *testing.T, s store.Store) {
	ctx := context.Background()

	rss, created, err := s.UpsertSource(ctx, domain.Source{Name: "Feed", URL: "https://example.com/rss", Kind: domain.SourceKindFeed, Active: true})
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = s.UpsertSource(ctx, domain.Source{Name: "Off", URL: "https://example.com/off", Kind: domain.SourceKindScrape, Active: false, TitleSelector: "h2"})
	require.NoError(t, err)
	assert.True(t, created)

	renamed, created, err := s.UpsertSource(ctx, domain.Source{Name: "Feed renamed", URL: "https://example.com/rss", Kind: domain.SourceKindFeed, Active: true})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rss.ID, renamed.ID)

	all, err := s.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.ListActiveSources(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Feed renamed", active[0].Name)
	assert.Equal(t, domain.SourceKindFeed, active[0].Kind)
}

func testInsertDedup(t *testing.T, s store.Store) {
	ctx := context.Background()
	pub := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first, created, err := s.TryInsert(ctx, domain.Article{ClientID: 1, Title: "Primeira", URL: "https://x.test/a", PublishedAt: &pub, Source: "X"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, created, err = s.TryInsert(ctx, domain.Article{ClientID: 2, Title: "Outra", URL: "https://x.test/a", Source: "Y"})
	require.NoError(t, err)
	assert.False(t, created)

	noDate, created, err := s.TryInsert(ctx, domain.Article{ClientID: 1, Title: "Sem data", URL: "https://x.test/b"})
	require.NoError(t, err)
	assert.True(t, created)

	got, err := s.GetArticle(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Primeira", got.Title)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, pub.Equal(*got.PublishedAt))

	got, err = s.GetArticle(ctx, noDate.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PublishedAt)

	_, err = s.GetArticle(ctx, 424242)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.ListArticles(ctx, store.ArticleFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func testConcurrentInsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	var wins int32
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created, err := s.TryInsert(ctx, domain.Article{ClientID: 1, Title: fmt.Sprintf("t%d", i), URL: "https://race.test/same"})
			assert.NoError(t, err)
			if created {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&wins))
}

func testDerived(t *testing.T, s store.Store) {
	ctx := context.Background()

	a, _, err := s.TryInsert(ctx, domain.Article{ClientID: 1, Title: "T", URL: "https://x.test/d", Content: "C"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateDerived(ctx, a.ID, "S.", "Economia", store.SearchText("T", "S.", "C")))
	require.NoError(t, s.SetExcluded(ctx, a.ID, true))

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "S.", got.Summary)
	assert.Equal(t, "Economia", got.Topic)
	assert.Equal(t, "T S. C", got.SearchText)
	assert.True(t, got.Excluded)

	visible, err := s.ListArticles(ctx, store.ArticleFilter{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	var seen int
	require.NoError(t, s.ForEachArticle(ctx, func(domain.Article) error { seen++; return nil }))
	assert.Equal(t, 1, seen)

	assert.ErrorIs(t, s.UpdateDerived(ctx, 9999, "", "", ""), store.ErrNotFound)
	assert.ErrorIs(t, s.SetExcluded(ctx, 9999, true), store.ErrNotFound)
}

func testLogs(t *testing.T, s store.Store) {
	ctx := context.Background()
	clientID := int64(7)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, domain.FetchLogEntry{Time: base, Level: domain.LevelInfo, Message: "start"}))
	require.NoError(t, s.Append(ctx, domain.FetchLogEntry{Time: base.Add(time.Second), Level: domain.LevelError, ClientID: &clientID, SourceName: "RSS: X", Message: "boom"}))
	require.NoError(t, s.Append(ctx, domain.FetchLogEntry{Time: base.Add(2 * time.Second), Level: domain.LevelSuccess, ClientID: &clientID, Message: "done"}))

	all, err := s.ListLogs(ctx, store.LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "done", all[0].Message)

	errs, err := s.ListLogs(ctx, store.LogFilter{Level: domain.LevelError})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "RSS: X", errs[0].SourceName)
	require.NotNil(t, errs[0].ClientID)
	assert.Equal(t, clientID, *errs[0].ClientID)

	limited, err := s.ListLogs(ctx, store.LogFilter{ClientID: &clientID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "done", limited[0].Message)
}
