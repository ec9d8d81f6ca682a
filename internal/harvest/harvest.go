// Package harvest runs fetch cycles: for every client it fans out one task per
// enabled source, collects the outcomes and records what happened.
package harvest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/fetchlog"
	"github.com/Adda-Baaj/newsclip/internal/ingest"
	"github.com/Adda-Baaj/newsclip/internal/logger"
	"github.com/Adda-Baaj/newsclip/internal/query"
	"github.com/Adda-Baaj/newsclip/internal/textutil"
	"github.com/Adda-Baaj/newsclip/pkg/providers"
)

const (
	defaultWorkers      = 5
	defaultLookbackDays = 90
)

// ClientReader lists the clients and registered sources a cycle works on.
type ClientReader interface {
	ListClients(ctx context.Context, id *int64) ([]domain.Client, error)
	ListActiveSources(ctx context.Context) ([]domain.Source, error)
}

// Acceptor stores candidates for a client.
type Acceptor interface {
	Accept(ctx context.Context, client domain.Client, c domain.Candidate) (ingest.Result, error)
}

// Options tunes a Harvester. Zero values fall back to defaults.
type Options struct {
	Workers           int
	LookbackDays      int
	ClientParallelism int
	ClientTimeout     time.Duration
	Credentials       providers.Credentials
	Now               func() time.Time
}

// RunOptions narrows a single cycle.
type RunOptions struct {
	ClientID *int64
	Force    bool
}

// Summary is the aggregate outcome of a cycle. TotalSaved sums the adapter
// counts; Created counts the articles that were actually new.
type Summary struct {
	ClientsProcessed int
	TotalSaved       int
	Created          int
}

// Harvester orchestrates fetch cycles.
type Harvester struct {
	clients  ClientReader
	acceptor Acceptor
	registry providers.FetcherRegistry
	events   *fetchlog.Emitter
	log      logger.Logger
	opts     Options
}

// New builds a Harvester. A nil emitter only logs.
func New(clients ClientReader, acceptor Acceptor, registry providers.FetcherRegistry, events *fetchlog.Emitter, log logger.Logger, opts Options) *Harvester {
	if log == nil {
		log = logger.NopLogger{}
	}
	if events == nil {
		events = fetchlog.NewEmitter(nil, log)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = defaultLookbackDays
	}
	if opts.ClientParallelism <= 0 {
		opts.ClientParallelism = 1
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Harvester{
		clients:  clients,
		acceptor: acceptor,
		registry: registry,
		events:   events,
		log:      log,
		opts:     opts,
	}
}

// task is one adapter invocation for one client.
type task struct {
	label   string
	fetcher providers.Fetcher
	source  *domain.Source
}

type outcome struct {
	count int
	err   error
}

type clientResult struct {
	processed bool
	saved     int
	created   int
}

// RunFetchCycle fetches news for every selected client. It only fails when the
// clients or sources cannot be read; per-source failures are logged and keep
// the count of candidates they forwarded before failing.
func (h *Harvester) RunFetchCycle(ctx context.Context, opts RunOptions) (Summary, error) {
	clients, err := h.clients.ListClients(ctx, opts.ClientID)
	if err != nil {
		return Summary{}, fmt.Errorf("list clients: %w", err)
	}
	if len(clients) == 0 {
		h.events.Emit(ctx, fetchlog.Event{
			Level:   domain.LevelWarning,
			Name:    "no_clients",
			Message: "no clients found to process",
		})
		return Summary{}, nil
	}

	sources, err := h.clients.ListActiveSources(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list active sources: %w", err)
	}

	until := h.opts.Now()
	since := until.AddDate(0, 0, -h.opts.LookbackDays)

	var (
		mu      sync.Mutex
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.ClientParallelism)
	for _, client := range clients {
		g.Go(func() error {
			res := h.processClient(gctx, client, sources, since, until, opts.Force)
			mu.Lock()
			defer mu.Unlock()
			if res.processed {
				summary.ClientsProcessed++
			}
			summary.TotalSaved += res.saved
			summary.Created += res.created
			return nil
		})
	}
	_ = g.Wait()

	h.events.Emit(context.WithoutCancel(ctx), fetchlog.Event{
		Level:   domain.LevelSuccess,
		Name:    "cycle_complete",
		Message: fmt.Sprintf("fetch cycle finished, total saved: %d", summary.TotalSaved),
		Fields: map[string]any{
			"clients_processed": summary.ClientsProcessed,
			"total_saved":       summary.TotalSaved,
			"created":           summary.Created,
		},
	})

	return summary, nil
}

func (h *Harvester) processClient(ctx context.Context, client domain.Client, sources []domain.Source, since, until time.Time, force bool) clientResult {
	// Fetch log writes outlive the client timeout and caller cancellation.
	logCtx := context.WithoutCancel(ctx)
	runCtx := ctx
	if h.opts.ClientTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.opts.ClientTimeout)
		defer cancel()
	}
	ctx = logCtx

	h.events.Emit(ctx, fetchlog.Event{
		Level:   domain.LevelInfo,
		Name:    "client_start",
		Client:  &client,
		Message: fmt.Sprintf("processing client %s", client.Name),
	})

	keywords := textutil.NormalizeKeywords(client.Keywords)
	if len(keywords) == 0 {
		h.events.Emit(ctx, fetchlog.Event{
			Level:   domain.LevelWarning,
			Name:    "client_skipped",
			Client:  &client,
			Message: fmt.Sprintf("client %s has no keywords, skipping", client.Name),
		})
		return clientResult{}
	}

	req := providers.Request{
		Client:   client,
		Keywords: keywords,
		Query:    query.Build(keywords, client.Operators),
		Since:    since,
		Until:    until,
		Force:    force,
	}

	tasks := h.dispatch(ctx, client, sources, force)

	var created atomic.Int64
	sink := providers.SinkFunc(func(ctx context.Context, c domain.Candidate) {
		res, err := h.acceptor.Accept(ctx, client, c)
		if err != nil {
			h.log.ErrorObj("store candidate failed", "store_error", map[string]any{
				"client": client.Name,
				"source": c.Source,
				"url":    c.URL,
				"error":  err.Error(),
			})
			return
		}
		if res == ingest.Created {
			created.Add(1)
		}
	})

	outcomes := h.collect(runCtx, req, tasks, sink)

	total := 0
	for i, out := range outcomes {
		t := tasks[i]
		total += out.count
		if out.err != nil {
			h.events.Emit(ctx, fetchlog.Event{
				Level:   domain.LevelError,
				Name:    "source_failed",
				Client:  &client,
				Source:  t.source,
				Label:   t.label,
				Message: fmt.Sprintf("source %s failed after %d article(s): %v", t.label, out.count, out.err),
				Fields:  map[string]any{"count": out.count},
			})
			continue
		}
		if out.count > 0 {
			h.events.Emit(ctx, fetchlog.Event{
				Level:   domain.LevelSuccess,
				Name:    "source_saved",
				Client:  &client,
				Source:  t.source,
				Label:   t.label,
				Message: fmt.Sprintf("source %s: %d article(s) saved", t.label, out.count),
				Fields:  map[string]any{"count": out.count},
			})
		}
	}

	if total > 0 {
		h.events.Emit(ctx, fetchlog.Event{
			Level:   domain.LevelSuccess,
			Name:    "client_total",
			Client:  &client,
			Message: fmt.Sprintf("%d article(s) saved for %s", total, client.Name),
			Fields:  map[string]any{"count": total, "created": created.Load()},
		})
	} else {
		h.events.Emit(ctx, fetchlog.Event{
			Level:   domain.LevelInfo,
			Name:    "client_total",
			Client:  &client,
			Message: fmt.Sprintf("no new articles saved for %s", client.Name),
		})
	}

	return clientResult{processed: true, saved: total, created: int(created.Load())}
}

// dispatch lists the tasks for one client: paid APIs when a key is set or the
// run is forced, Google News always, then every active registered source.
func (h *Harvester) dispatch(ctx context.Context, client domain.Client, sources []domain.Source, force bool) []task {
	tasks := make([]task, 0, len(sources)+3)

	paid := []struct {
		id, label string
	}{
		{providers.NewsAPIID, "NewsAPI"},
		{providers.NewsDataID, "NewsData"},
	}
	for _, p := range paid {
		f, ok := h.registry.ByID(p.id)
		if !ok {
			continue
		}
		if !force && !h.hasKey(p.id) {
			h.events.Emit(ctx, fetchlog.Event{
				Level:   domain.LevelWarning,
				Name:    "paid_api_skipped",
				Client:  &client,
				Label:   p.label,
				Message: fmt.Sprintf("%s key not configured, skipping", p.label),
			})
			continue
		}
		tasks = append(tasks, task{label: p.label, fetcher: f})
	}

	if f, ok := h.registry.ByID(providers.GoogleNewsID); ok {
		tasks = append(tasks, task{label: "Google News", fetcher: f})
	}

	for i := range sources {
		src := &sources[i]
		f, err := h.registry.FetcherFor(*src)
		if err != nil {
			h.events.Emit(ctx, fetchlog.Event{
				Level:   domain.LevelWarning,
				Name:    "source_unsupported",
				Client:  &client,
				Source:  src,
				Message: err.Error(),
			})
			continue
		}
		tasks = append(tasks, task{label: fmt.Sprintf("%s: %s", src.Kind, src.Name), fetcher: f, source: src})
	}

	return tasks
}

func (h *Harvester) hasKey(name string) bool {
	if h.opts.Credentials == nil {
		return false
	}
	_, ok := h.opts.Credentials.Lookup(name)
	return ok
}

// collect runs the tasks on a fixed-size worker pool and returns their outcomes in task order.
func (h *Harvester) collect(ctx context.Context, req providers.Request, tasks []task, sink providers.Sink) []outcome {
	out := make([]outcome, len(tasks))
	if len(tasks) == 0 {
		return out
	}

	workerCount := min(len(tasks), h.opts.Workers)
	jobCh := make(chan int)
	var wg sync.WaitGroup

	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				t := tasks[idx]
				r := req
				r.Source = t.source
				// count stays valid on error: candidates forwarded before a failure are already stored.
				count, err := t.fetcher.Fetch(ctx, r, sink)
				out[idx] = outcome{count: count, err: err}
			}
		}()
	}

	for idx := range tasks {
		jobCh <- idx
	}
	close(jobCh)

	wg.Wait()

	return out
}
