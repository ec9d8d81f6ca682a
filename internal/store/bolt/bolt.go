// Package bolt is the default embedded store backed by bbolt.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/store"
)

var (
	bucketClients     = []byte("clients")
	bucketClientNames = []byte("client_names")
	bucketSources     = []byte("sources")
	bucketSourceURLs  = []byte("source_urls")
	bucketArticles    = []byte("articles")
	bucketArticleURLs = []byte("article_urls")
	bucketLogs        = []byte("fetch_logs")

	allBuckets = [][]byte{
		bucketClients, bucketClientNames,
		bucketSources, bucketSourceURLs,
		bucketArticles, bucketArticleURLs,
		bucketLogs,
	}
)

var errStop = errors.New("stop iteration")

// Store implements store.Store on a single bbolt file.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the bolt file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return b.Put(key, raw)
}

func normalizeName(name string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(name)))
}

// ListClients returns every client, or only the one with the given id.
func (s *Store) ListClients(ctx context.Context, id *int64) ([]domain.Client, error) {
	var out []domain.Client
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketClients)
		if id != nil {
			raw := b.Get(itob(uint64(*id)))
			if raw == nil {
				return nil
			}
			var c domain.Client
			if err := json.Unmarshal(raw, &c); err != nil {
				return fmt.Errorf("decode client %d: %w", *id, err)
			}
			out = append(out, c)
			return nil
		}
		return b.ForEach(func(_, raw []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var c domain.Client
			if err := json.Unmarshal(raw, &c); err != nil {
				return fmt.Errorf("decode client: %w", err)
			}
			out = append(out, c)
			return nil
		})
	})
	return out, err
}

// UpsertClient inserts a client or replaces the one with the same name.
func (s *Store) UpsertClient(_ context.Context, c domain.Client) (domain.Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return domain.Client{}, errors.New("client name is required")
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(bucketClientNames)
		clients := tx.Bucket(bucketClients)
		key := normalizeName(c.Name)
		if existing := names.Get(key); existing != nil {
			c.ID = btoi(existing)
		} else {
			seq, err := clients.NextSequence()
			if err != nil {
				return err
			}
			c.ID = int64(seq)
			if err := names.Put(key, itob(seq)); err != nil {
				return err
			}
		}
		return putJSON(clients, itob(uint64(c.ID)), c)
	})
	if err != nil {
		return domain.Client{}, fmt.Errorf("upsert client %q: %w", c.Name, err)
	}
	return c, nil
}

// ListSources returns all registered sources in id order.
func (s *Store) ListSources(ctx context.Context) ([]domain.Source, error) {
	return s.listSources(ctx, false)
}

// ListActiveSources returns sources flagged active.
func (s *Store) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	return s.listSources(ctx, true)
}

func (s *Store) listSources(ctx context.Context, activeOnly bool) ([]domain.Source, error) {
	var out []domain.Source
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSources).ForEach(func(_, raw []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var src domain.Source
			if err := json.Unmarshal(raw, &src); err != nil {
				return fmt.Errorf("decode source: %w", err)
			}
			if activeOnly && !src.Active {
				return nil
			}
			out = append(out, src)
			return nil
		})
	})
	return out, err
}

// UpsertSource inserts or replaces a source keyed by URL. The bool reports creation.
func (s *Store) UpsertSource(_ context.Context, src domain.Source) (domain.Source, bool, error) {
	src.URL = strings.TrimSpace(src.URL)
	if src.URL == "" {
		return domain.Source{}, false, errors.New("source url is required")
	}
	var created bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		urls := tx.Bucket(bucketSourceURLs)
		sources := tx.Bucket(bucketSources)
		if existing := urls.Get([]byte(src.URL)); existing != nil {
			src.ID = btoi(existing)
		} else {
			seq, err := sources.NextSequence()
			if err != nil {
				return err
			}
			src.ID = int64(seq)
			created = true
			if err := urls.Put([]byte(src.URL), itob(seq)); err != nil {
				return err
			}
		}
		return putJSON(sources, itob(uint64(src.ID)), src)
	})
	if err != nil {
		return domain.Source{}, false, fmt.Errorf("upsert source %q: %w", src.URL, err)
	}
	return src, created, nil
}

// TryInsert writes the article only when its URL is new. Bolt serialises
// writers, so the lookup and put form one atomic step.
func (s *Store) TryInsert(_ context.Context, a domain.Article) (domain.Article, bool, error) {
	if strings.TrimSpace(a.URL) == "" {
		return domain.Article{}, false, errors.New("article url is required")
	}
	var created bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		urls := tx.Bucket(bucketArticleURLs)
		if urls.Get([]byte(a.URL)) != nil {
			return nil
		}
		articles := tx.Bucket(bucketArticles)
		seq, err := articles.NextSequence()
		if err != nil {
			return err
		}
		now := s.now()
		a.ID = int64(seq)
		a.CreatedAt = now
		a.UpdatedAt = now
		if err := urls.Put([]byte(a.URL), itob(seq)); err != nil {
			return err
		}
		created = true
		return putJSON(articles, itob(seq), a)
	})
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("insert article %q: %w", a.URL, err)
	}
	return a, created, nil
}

// mutateArticle loads, modifies and rewrites one article in a single transaction.
func (s *Store) mutateArticle(id int64, fn func(*domain.Article)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketArticles)
		key := itob(uint64(id))
		raw := b.Get(key)
		if raw == nil {
			return fmt.Errorf("article %d: %w", id, store.ErrNotFound)
		}
		var a domain.Article
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("decode article %d: %w", id, err)
		}
		fn(&a)
		a.UpdatedAt = s.now()
		return putJSON(b, key, a)
	})
}

// UpdateDerived rewrites summary, topic and search text.
func (s *Store) UpdateDerived(_ context.Context, id int64, summary, topic, searchText string) error {
	return s.mutateArticle(id, func(a *domain.Article) {
		a.Summary = summary
		a.Topic = topic
		a.SearchText = searchText
	})
}

// SetExcluded toggles the curation flag.
func (s *Store) SetExcluded(_ context.Context, id int64, excluded bool) error {
	return s.mutateArticle(id, func(a *domain.Article) {
		a.Excluded = excluded
	})
}

// GetArticle loads one article by id.
func (s *Store) GetArticle(_ context.Context, id int64) (domain.Article, error) {
	var a domain.Article
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketArticles).Get(itob(uint64(id)))
		if raw == nil {
			return fmt.Errorf("article %d: %w", id, store.ErrNotFound)
		}
		return json.Unmarshal(raw, &a)
	})
	return a, err
}

// ListArticles returns articles newest first.
func (s *Store) ListArticles(ctx context.Context, f store.ArticleFilter) ([]domain.Article, error) {
	var out []domain.Article
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketArticles).Cursor()
		for k, raw := c.Last(); k != nil; k, raw = c.Prev() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var a domain.Article
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("decode article: %w", err)
			}
			if a.Excluded && !f.IncludeExcluded {
				continue
			}
			if f.ClientID != nil && a.ClientID != *f.ClientID {
				continue
			}
			out = append(out, a)
			if f.Limit > 0 && len(out) >= f.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// ForEachArticle visits every article in id order. The snapshot is read before fn runs, so fn may write.
func (s *Store) ForEachArticle(ctx context.Context, fn func(domain.Article) error) error {
	var batch []domain.Article
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketArticles).ForEach(func(_, raw []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var a domain.Article
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("decode article: %w", err)
			}
			batch = append(batch, a)
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, a := range batch {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

// Append adds a fetch log entry.
func (s *Store) Append(_ context.Context, e domain.FetchLogEntry) error {
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLogs)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.ID = int64(seq)
		return putJSON(b, itob(seq), e)
	})
}

// ListLogs returns log entries newest first.
func (s *Store) ListLogs(ctx context.Context, f store.LogFilter) ([]domain.FetchLogEntry, error) {
	var out []domain.FetchLogEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketLogs).Cursor()
		for k, raw := c.Last(); k != nil; k, raw = c.Prev() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e domain.FetchLogEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("decode log entry: %w", err)
			}
			if f.Level != "" && e.Level != f.Level {
				continue
			}
			if f.ClientID != nil && (e.ClientID == nil || *e.ClientID != *f.ClientID) {
				continue
			}
			out = append(out, e)
			if f.Limit > 0 && len(out) >= f.Limit {
				return errStop
			}
		}
		return nil
	})
	if errors.Is(err, errStop) {
		err = nil
	}
	return out, err
}
