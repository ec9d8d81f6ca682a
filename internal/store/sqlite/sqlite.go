// Package sqlite is the SQL store backend (modernc sqlite, squirrel query builder).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/store"
)

const timeLayout = time.RFC3339Nano

var articleColumns = []string{
	"id", "client_id", "title", "url", "published_at", "source", "content",
	"summary", "topic", "excluded", "search_text", "created_at", "updated_at",
}

var sourceColumns = []string{
	"id", "name", "url", "kind", "active", "title_selector", "link_selector", "date_selector",
}

// Store implements store.Store on SQLite.
type Store struct {
	db  *sql.DB
	qb  sq.StatementBuilderType
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens the database file, applies pragmas and migrates the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			keywords TEXT NOT NULL DEFAULT '[]',
			domains TEXT NOT NULL DEFAULT '[]',
			operators TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			title_selector TEXT NOT NULL DEFAULT '',
			link_selector TEXT NOT NULL DEFAULT '',
			date_selector TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			published_at TEXT,
			source TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			topic TEXT NOT NULL DEFAULT '',
			excluded INTEGER NOT NULL DEFAULT 0,
			search_text TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fetch_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT NOT NULL,
			level TEXT NOT NULL,
			client_id INTEGER,
			client_name TEXT NOT NULL DEFAULT '',
			source_id INTEGER,
			source_name TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_client ON articles(client_id, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_logs_client ON fetch_logs(client_id, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListClients returns every client, or only the one with the given id.
func (s *Store) ListClients(ctx context.Context, id *int64) ([]domain.Client, error) {
	q := s.qb.Select("id", "name", "keywords", "domains", "operators").From("clients").OrderBy("id")
	if id != nil {
		q = q.Where(sq.Eq{"id": *id})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		var (
			c                  domain.Client
			kws, doms, opsBlob string
		)
		if err := rows.Scan(&c.ID, &c.Name, &kws, &doms, &opsBlob); err != nil {
			return nil, err
		}
		if err := decodeJSON(kws, &c.Keywords); err != nil {
			return nil, fmt.Errorf("client %d keywords: %w", c.ID, err)
		}
		if err := decodeJSON(doms, &c.Domains); err != nil {
			return nil, fmt.Errorf("client %d domains: %w", c.ID, err)
		}
		if err := decodeJSON(opsBlob, &c.Operators); err != nil {
			return nil, fmt.Errorf("client %d operators: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertClient inserts a client or replaces the one with the same name.
func (s *Store) UpsertClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return domain.Client{}, errors.New("client name is required")
	}
	kws, _ := json.Marshal(c.Keywords)
	doms, _ := json.Marshal(c.Domains)
	ops, _ := json.Marshal(c.Operators)

	query, args, err := s.qb.Insert("clients").
		Columns("name", "keywords", "domains", "operators").
		Values(c.Name, string(kws), string(doms), string(ops)).
		Suffix("ON CONFLICT(name) DO UPDATE SET keywords = excluded.keywords, domains = excluded.domains, operators = excluded.operators").
		ToSql()
	if err != nil {
		return domain.Client{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.Client{}, fmt.Errorf("upsert client %q: %w", c.Name, err)
	}

	query, args, err = s.qb.Select("id").From("clients").Where(sq.Eq{"name": c.Name}).ToSql()
	if err != nil {
		return domain.Client{}, err
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&c.ID); err != nil {
		return domain.Client{}, fmt.Errorf("lookup client %q: %w", c.Name, err)
	}
	return c, nil
}

// ListSources returns all registered sources in id order.
func (s *Store) ListSources(ctx context.Context) ([]domain.Source, error) {
	return s.listSources(ctx, s.qb.Select(sourceColumns...).From("sources").OrderBy("id"))
}

// ListActiveSources returns sources flagged active.
func (s *Store) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	return s.listSources(ctx, s.qb.Select(sourceColumns...).From("sources").Where(sq.Eq{"active": 1}).OrderBy("id"))
}

func (s *Store) listSources(ctx context.Context, q sq.SelectBuilder) ([]domain.Source, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		var (
			src    domain.Source
			kind   string
			active int
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &kind, &active, &src.TitleSelector, &src.LinkSelector, &src.DateSelector); err != nil {
			return nil, err
		}
		src.Kind = domain.SourceKind(kind)
		src.Active = active != 0
		out = append(out, src)
	}
	return out, rows.Err()
}

// UpsertSource inserts or updates a source keyed by URL. The bool reports creation.
func (s *Store) UpsertSource(ctx context.Context, src domain.Source) (domain.Source, bool, error) {
	src.URL = strings.TrimSpace(src.URL)
	if src.URL == "" {
		return domain.Source{}, false, errors.New("source url is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Source{}, false, err
	}
	defer tx.Rollback()

	query, args, err := s.qb.Select("id").From("sources").Where(sq.Eq{"url": src.URL}).ToSql()
	if err != nil {
		return domain.Source{}, false, err
	}
	var existing int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		query, args, err = s.qb.Insert("sources").
			Columns("name", "url", "kind", "active", "title_selector", "link_selector", "date_selector").
			Values(src.Name, src.URL, string(src.Kind), boolToInt(src.Active), src.TitleSelector, src.LinkSelector, src.DateSelector).
			ToSql()
		if err != nil {
			return domain.Source{}, false, err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return domain.Source{}, false, fmt.Errorf("insert source %q: %w", src.URL, err)
		}
		if src.ID, err = res.LastInsertId(); err != nil {
			return domain.Source{}, false, err
		}
		return src, true, tx.Commit()
	case err != nil:
		return domain.Source{}, false, fmt.Errorf("lookup source %q: %w", src.URL, err)
	}

	src.ID = existing
	query, args, err = s.qb.Update("sources").SetMap(map[string]any{
		"name":           src.Name,
		"kind":           string(src.Kind),
		"active":         boolToInt(src.Active),
		"title_selector": src.TitleSelector,
		"link_selector":  src.LinkSelector,
		"date_selector":  src.DateSelector,
	}).Where(sq.Eq{"id": existing}).ToSql()
	if err != nil {
		return domain.Source{}, false, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return domain.Source{}, false, fmt.Errorf("update source %q: %w", src.URL, err)
	}
	return src, false, tx.Commit()
}

// TryInsert relies on the UNIQUE(url) constraint; a conflict inserts nothing.
func (s *Store) TryInsert(ctx context.Context, a domain.Article) (domain.Article, bool, error) {
	if strings.TrimSpace(a.URL) == "" {
		return domain.Article{}, false, errors.New("article url is required")
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now

	query, args, err := s.qb.Insert("articles").
		Columns(articleColumns[1:]...).
		Values(a.ClientID, a.Title, a.URL, formatNullTime(a.PublishedAt), a.Source, a.Content,
			a.Summary, a.Topic, boolToInt(a.Excluded), a.SearchText,
			now.Format(timeLayout), now.Format(timeLayout)).
		Suffix("ON CONFLICT(url) DO NOTHING").
		ToSql()
	if err != nil {
		return domain.Article{}, false, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("insert article %q: %w", a.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Article{}, false, err
	}
	if n == 0 {
		return a, false, nil
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return domain.Article{}, false, err
	}
	return a, true, nil
}

// UpdateDerived rewrites summary, topic and search text.
func (s *Store) UpdateDerived(ctx context.Context, id int64, summary, topic, searchText string) error {
	return s.updateArticle(ctx, id, map[string]any{
		"summary":     summary,
		"topic":       topic,
		"search_text": searchText,
	})
}

// SetExcluded toggles the curation flag.
func (s *Store) SetExcluded(ctx context.Context, id int64, excluded bool) error {
	return s.updateArticle(ctx, id, map[string]any{"excluded": boolToInt(excluded)})
}

func (s *Store) updateArticle(ctx context.Context, id int64, fields map[string]any) error {
	fields["updated_at"] = s.now().Format(timeLayout)
	query, args, err := s.qb.Update("articles").SetMap(fields).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("article %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// GetArticle loads one article by id.
func (s *Store) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	out, err := s.queryArticles(ctx, s.qb.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Article{}, err
	}
	if len(out) == 0 {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, store.ErrNotFound)
	}
	return out[0], nil
}

// ListArticles returns articles newest first.
func (s *Store) ListArticles(ctx context.Context, f store.ArticleFilter) ([]domain.Article, error) {
	q := s.qb.Select(articleColumns...).From("articles").OrderBy("id DESC")
	if !f.IncludeExcluded {
		q = q.Where(sq.Eq{"excluded": 0})
	}
	if f.ClientID != nil {
		q = q.Where(sq.Eq{"client_id": *f.ClientID})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return s.queryArticles(ctx, q)
}

// ForEachArticle visits every article in id order.
func (s *Store) ForEachArticle(ctx context.Context, fn func(domain.Article) error) error {
	all, err := s.queryArticles(ctx, s.qb.Select(articleColumns...).From("articles").OrderBy("id"))
	if err != nil {
		return err
	}
	for _, a := range all {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) queryArticles(ctx context.Context, q sq.SelectBuilder) ([]domain.Article, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		var (
			a                domain.Article
			published        sql.NullString
			excluded         int
			created, updated string
		)
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Title, &a.URL, &published, &a.Source, &a.Content,
			&a.Summary, &a.Topic, &excluded, &a.SearchText, &created, &updated); err != nil {
			return nil, err
		}
		a.Excluded = excluded != 0
		a.PublishedAt = parseNullTime(published)
		a.CreatedAt = parseTime(created)
		a.UpdatedAt = parseTime(updated)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Append adds a fetch log entry.
func (s *Store) Append(ctx context.Context, e domain.FetchLogEntry) error {
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	query, args, err := s.qb.Insert("fetch_logs").
		Columns("time", "level", "client_id", "client_name", "source_id", "source_name", "message").
		Values(e.Time.UTC().Format(timeLayout), string(e.Level), nullInt(e.ClientID), e.ClientName, nullInt(e.SourceID), e.SourceName, e.Message).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append fetch log: %w", err)
	}
	return nil
}

// ListLogs returns log entries newest first.
func (s *Store) ListLogs(ctx context.Context, f store.LogFilter) ([]domain.FetchLogEntry, error) {
	q := s.qb.Select("id", "time", "level", "client_id", "client_name", "source_id", "source_name", "message").
		From("fetch_logs").OrderBy("id DESC")
	if f.Level != "" {
		q = q.Where(sq.Eq{"level": string(f.Level)})
	}
	if f.ClientID != nil {
		q = q.Where(sq.Eq{"client_id": *f.ClientID})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fetch logs: %w", err)
	}
	defer rows.Close()

	var out []domain.FetchLogEntry
	for rows.Next() {
		var (
			e                  domain.FetchLogEntry
			ts, level          string
			clientID, sourceID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &ts, &level, &clientID, &e.ClientName, &sourceID, &e.SourceName, &e.Message); err != nil {
			return nil, err
		}
		e.Time = parseTime(ts)
		e.Level = domain.Level(level)
		if clientID.Valid {
			v := clientID.Int64
			e.ClientID = &v
		}
		if sourceID.Valid {
			v := sourceID.Int64
			e.SourceID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func decodeJSON(raw string, v any) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTime(raw string) time.Time {
	t, _ := time.Parse(timeLayout, raw)
	return t
}
