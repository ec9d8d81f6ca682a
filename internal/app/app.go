// Package app wires configuration, storage, fetchers and publishers into a runnable harvester.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adda-Baaj/newsclip/internal/config"
	"github.com/Adda-Baaj/newsclip/internal/crawler"
	"github.com/Adda-Baaj/newsclip/internal/fetchlog"
	"github.com/Adda-Baaj/newsclip/internal/harvest"
	"github.com/Adda-Baaj/newsclip/internal/ingest"
	"github.com/Adda-Baaj/newsclip/internal/logger"
	"github.com/Adda-Baaj/newsclip/internal/store"
	"github.com/Adda-Baaj/newsclip/internal/store/bolt"
	"github.com/Adda-Baaj/newsclip/internal/store/sqlite"
	"github.com/Adda-Baaj/newsclip/pkg/httpclient"
	"github.com/Adda-Baaj/newsclip/pkg/providers"
	"github.com/Adda-Baaj/newsclip/pkg/publishers"
)

// App holds the long-lived collaborators of one process.
type App struct {
	Config    *config.Config
	Log       logger.Logger
	Store     store.Store
	Harvester *harvest.Harvester
	Reindexer *ingest.Reindexer
}

// OpenStore opens the backend selected by cfg.Driver.
func OpenStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverBolt, "":
		st, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreDriverSQLite:
		st, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// New opens the store and builds the harvester. Publishers are loaded only
// when publishers.file is set.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	st, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	fanout, err := buildFanout(ctx, cfg.Publishers, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	dedup := ingest.NewDeduplicator(st, log, ingest.WithAnnouncer(fanout))
	registry := buildRegistry(cfg, log)
	events := fetchlog.NewEmitter(st, log)

	h := harvest.New(st, dedup, registry, events, log, harvest.Options{
		Workers:           cfg.Fetch.Workers,
		LookbackDays:      cfg.Fetch.LookbackDays,
		ClientParallelism: cfg.Fetch.ClientParallelism,
		ClientTimeout:     cfg.Fetch.ClientTimeout,
		Credentials:       cfg.Credentials(),
	})

	log.InfoObj("harvester ready", "app_ready", map[string]any{
		"store_driver": cfg.Store.Driver,
		"store_path":   cfg.Store.Path,
		"publishers":   fanout.Len(),
		"workers":      cfg.Fetch.Workers,
	})

	return &App{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Harvester: h,
		Reindexer: ingest.NewReindexer(st, log),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

func buildRegistry(cfg *config.Config, log logger.Logger) providers.FetcherRegistry {
	retry := httpclient.WithRetry(cfg.HTTP.RetryCount)
	client := httpclient.NewRestyClient(cfg.HTTP.Timeout, retry)
	apiClient := httpclient.NewRestyClient(cfg.HTTP.APITimeout, retry)
	scrapeClient := httpclient.NewRestyClient(cfg.HTTP.ScrapeTimeout, retry)

	var enricher providers.Enricher
	if cfg.Fetch.ScrapeEnrich {
		enricher = crawler.NewScraper(scrapeClient, log, 0)
	}

	return providers.NewFetcherRegistry(
		providers.NewNewsAPIFetcher(apiClient, cfg.Credentials(), providers.NewsAPIOptions{
			URL:       cfg.NewsAPI.URL,
			Language:  cfg.NewsAPI.Language,
			MaxDays:   cfg.NewsAPI.MaxDays,
			PageSize:  cfg.NewsAPI.PageSize,
			UserAgent: cfg.HTTP.UserAgent,
		}),
		providers.NewNewsDataFetcher(apiClient, cfg.Credentials(), providers.NewsDataOptions{
			URL:       cfg.NewsData.URL,
			Language:  cfg.NewsData.Language,
			UserAgent: cfg.HTTP.UserAgent,
		}),
		providers.NewGoogleNewsFetcher(client, providers.GoogleNewsOptions{
			URL:       cfg.GoogleNews.URL,
			HL:        cfg.GoogleNews.HL,
			GL:        cfg.GoogleNews.GL,
			CEID:      cfg.GoogleNews.CEID,
			UserAgent: cfg.HTTP.UserAgent,
		}),
		providers.NewFeedFetcher(client, providers.FeedOptions{UserAgent: cfg.HTTP.UserAgent}),
		providers.NewScrapeFetcher(scrapeClient, providers.ScrapeOptions{
			UserAgent: cfg.HTTP.ScrapeAgent,
			Enricher:  enricher,
		}),
		providers.NewSitemapFetcher(client, providers.SitemapOptions{UserAgent: cfg.HTTP.UserAgent, Log: log}),
	)
}

func buildFanout(ctx context.Context, cfg config.PublishersConfig, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.File == "" {
		return publishers.NewFanout(nil, log), nil
	}

	reg, err := publishers.LoadRegistry(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), reg.Enabled(), log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	return publishers.NewFanout(pubs, log), nil
}
