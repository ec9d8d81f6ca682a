package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/newsclip/internal/config"
	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/harvest"
	"github.com/Adda-Baaj/newsclip/internal/store"
)

const sourcesYAML = `
sources:
  - name: Portal RSS
    url: https://portal.test/rss
    kind: RSS
  - name: Portal Lista
    url: https://portal.test/lista
    kind: scrape
    title_selector: "h2 a"
    active: false
  - name: Portal Sitemap
    url: https://portal.test/news-sitemap.xml
    kind: news-sitemap
`

const clientsYAML = `
clients:
  - name: Prefeitura
    keywords: "eleição, prefeito ,"
    operators:
      eleição: AND
  - name: Clube
    keywords: [futebol, " copa "]
    domains: [globo.com]
`

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Driver: driver, Path: filepath.Join(t.TempDir(), "news.db")},
		HTTP: config.HTTPConfig{
			Timeout:       time.Second,
			APITimeout:    time.Second,
			ScrapeTimeout: time.Second,
		},
		Fetch:   config.FetchConfig{Workers: 5, LookbackDays: 90, ClientParallelism: 1, ScrapeEnrich: true},
		NewsAPI: config.NewsAPIConfig{MaxDays: 30},
	}
}

func TestOpenStoreDrivers(t *testing.T) {
	for _, driver := range []string{config.StoreDriverBolt, config.StoreDriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			st, err := OpenStore(testConfig(t, driver).Store)
			require.NoError(t, err)
			require.NoError(t, st.Close())
		})
	}

	_, err := OpenStore(config.StoreConfig{Driver: "postgres", Path: "x"})
	require.Error(t, err)
}

func TestImportSourcesIsIdempotent(t *testing.T) {
	a, err := New(t.Context(), testConfig(t, config.StoreDriverBolt), nil)
	require.NoError(t, err)
	defer a.Close()

	res, err := ImportSources(t.Context(), a.Store, strings.NewReader(sourcesYAML))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 3}, res)

	res, err = ImportSources(t.Context(), a.Store, strings.NewReader(sourcesYAML))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Updated: 3}, res)

	all, err := a.Store.ListSources(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.SourceKindFeed, all[0].Kind)
	assert.Equal(t, "h2 a", all[1].TitleSelector)
	assert.Equal(t, domain.SourceKindSitemap, all[2].Kind)

	active, err := a.Store.ListActiveSources(t.Context())
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestImportSourcesRejectsUnknownKind(t *testing.T) {
	a, err := New(t.Context(), testConfig(t, config.StoreDriverBolt), nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = ImportSources(t.Context(), a.Store, strings.NewReader("sources:\n  - {name: x, url: https://x.test, kind: ftp}"))
	require.Error(t, err)
}

func TestImportClients(t *testing.T) {
	a, err := New(t.Context(), testConfig(t, config.StoreDriverSQLite), nil)
	require.NoError(t, err)
	defer a.Close()

	n, err := ImportClients(t.Context(), a.Store, strings.NewReader(clientsYAML))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	clients, err := a.Store.ListClients(t.Context(), nil)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	byName := map[string]domain.Client{}
	for _, c := range clients {
		byName[c.Name] = c
	}
	assert.Equal(t, []string{"eleição", "prefeito"}, byName["Prefeitura"].Keywords)
	assert.Equal(t, "AND", byName["Prefeitura"].Operators["eleição"])
	assert.Equal(t, []string{"futebol", "copa"}, byName["Clube"].Keywords)
	assert.Equal(t, []string{"globo.com"}, byName["Clube"].Domains)
}

func TestNewWithoutClientsRunsEmptyCycle(t *testing.T) {
	a, err := New(t.Context(), testConfig(t, config.StoreDriverBolt), nil)
	require.NoError(t, err)
	defer a.Close()

	summary, err := a.Harvester.RunFetchCycle(t.Context(), harvest.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, harvest.Summary{}, summary)

	logs, err := a.Store.ListLogs(t.Context(), store.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LevelWarning, logs[0].Level)
}

func TestNewFailsOnBadPublishersFile(t *testing.T) {
	cfg := testConfig(t, config.StoreDriverBolt)
	cfg.Publishers.File = filepath.Join(t.TempDir(), "publishers.yaml")
	require.NoError(t, os.WriteFile(cfg.Publishers.File, []byte("publishers:\n  - {id: a, type: smtp}"), 0o600))

	_, err := New(t.Context(), cfg, nil)
	require.Error(t, err)
}
