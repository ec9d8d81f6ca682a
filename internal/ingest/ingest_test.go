package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/newsclip/internal/classify"
	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/store"
	"github.com/Adda-Baaj/newsclip/internal/store/bolt"
)

func openStore(t *testing.T) *bolt.Store {
	t.Helper()
	s, err := bolt.Open(filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type announcerFunc func(context.Context, domain.Article)

func (f announcerFunc) Announce(ctx context.Context, a domain.Article) { f(ctx, a) }

func TestAcceptCreatesThenDuplicates(t *testing.T) {
	st := openStore(t)
	var announced []string
	d := NewDeduplicator(st, nil, WithAnnouncer(announcerFunc(func(_ context.Context, a domain.Article) {
		announced = append(announced, a.URL)
	})))
	client := domain.Client{ID: 1, Name: "Acme"}
	cand := domain.Candidate{
		Title:   "Presidente e ministro se reúnem",
		URL:     "https://g1.test/politica/1",
		RawDate: "2024-05-01T10:00:00Z",
		Source:  "G1",
		Content: "Primeira frase. Segunda frase. Terceira frase. Quarta frase.",
	}

	res, err := d.Accept(context.Background(), client, cand)
	require.NoError(t, err)
	assert.Equal(t, Created, res)

	res, err = d.Accept(context.Background(), client, cand)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, res)
	assert.Equal(t, []string{"https://g1.test/politica/1"}, announced)

	list, err := st.ListArticles(context.Background(), store.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	a := list[0]
	assert.Equal(t, "Primeira frase. Segunda frase. Terceira frase.", a.Summary)
	assert.Equal(t, "Política", a.Topic)
	assert.Equal(t, a.Title+" "+a.Summary+" "+a.Content, a.SearchText)
	require.NotNil(t, a.PublishedAt)
}

func TestAcceptSoftDateFailure(t *testing.T) {
	st := openStore(t)
	d := NewDeduplicator(st, nil)

	res, err := d.Accept(context.Background(), domain.Client{ID: 1}, domain.Candidate{
		Title:   "Sem data",
		URL:     "https://x.test/nodate",
		RawDate: "ontem à tarde",
	})
	require.NoError(t, err)
	assert.Equal(t, Created, res)

	list, err := st.ListArticles(context.Background(), store.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].PublishedAt)
	assert.Equal(t, "Sem data.", list[0].Summary)
	assert.Equal(t, classify.Unclassified, list[0].Topic)
}

func TestAcceptTruncatesTitleAndSource(t *testing.T) {
	st := openStore(t)
	d := NewDeduplicator(st, nil)

	_, err := d.Accept(context.Background(), domain.Client{ID: 1}, domain.Candidate{
		Title:  strings.Repeat("é", 501),
		URL:    "https://x.test/long",
		Source: strings.Repeat("s", 800),
	})
	require.NoError(t, err)

	list, err := st.ListArticles(context.Background(), store.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(list[0].Title))
	assert.Equal(t, MaxSourceLength, utf8.RuneCountInString(list[0].Source))
}

func TestAcceptSkipsIncompleteCandidates(t *testing.T) {
	d := NewDeduplicator(openStore(t), nil)

	res, err := d.Accept(context.Background(), domain.Client{ID: 1}, domain.Candidate{Title: "  ", URL: "https://x.test"})
	require.NoError(t, err)
	assert.Equal(t, Skipped, res)

	res, err = d.Accept(context.Background(), domain.Client{ID: 1}, domain.Candidate{Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, Skipped, res)
}

type brokenStore struct{}

func (brokenStore) TryInsert(context.Context, domain.Article) (domain.Article, bool, error) {
	return domain.Article{}, false, errors.New("disk io")
}

func (brokenStore) UpdateDerived(context.Context, int64, string, string, string) error { return nil }

func TestAcceptPropagatesStorageErrors(t *testing.T) {
	d := NewDeduplicator(brokenStore{}, nil)
	_, err := d.Accept(context.Background(), domain.Client{ID: 1}, domain.Candidate{Title: "T", URL: "https://x.test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk io")
}

func TestReindexerRewritesStaleSearchText(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	a, _, err := st.TryInsert(ctx, domain.Article{ClientID: 1, Title: "T", URL: "https://x.test/r", Summary: "S.", Content: "C"})
	require.NoError(t, err)

	r := NewReindexer(st, nil)
	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "T S. C", got.SearchText)

	n, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
