// Package ingest turns adapter candidates into stored, classified articles.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/classify"
	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/logger"
	"github.com/Adda-Baaj/newsclip/internal/store"
	"github.com/Adda-Baaj/newsclip/internal/textutil"
)

const (
	// MaxTitleLength and MaxSourceLength are the storage maxima in runes.
	MaxTitleLength  = 500
	MaxSourceLength = 500

	summarySentences = 3
)

// Result is the outcome of one Accept call.
type Result int

const (
	Skipped Result = iota
	Created
	Duplicate
)

func (r Result) String() string {
	switch r {
	case Created:
		return "created"
	case Duplicate:
		return "duplicate"
	}
	return "skipped"
}

// ArticleStore is the persistence the deduplicator needs.
type ArticleStore interface {
	TryInsert(ctx context.Context, a domain.Article) (domain.Article, bool, error)
	UpdateDerived(ctx context.Context, id int64, summary, topic, searchText string) error
}

// Announcer is told about every newly created article.
type Announcer interface {
	Announce(ctx context.Context, a domain.Article)
}

// Deduplicator normalises a candidate and stores it unless its URL is known.
type Deduplicator struct {
	store      ArticleStore
	classifier *classify.Classifier
	announcer  Announcer
	log        logger.Logger
}

// Option customises a Deduplicator.
type Option func(*Deduplicator)

// WithAnnouncer registers a listener for created articles.
func WithAnnouncer(a Announcer) Option {
	return func(d *Deduplicator) { d.announcer = a }
}

// WithClassifier overrides the default topic classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(d *Deduplicator) {
		if c != nil {
			d.classifier = c
		}
	}
}

// NewDeduplicator builds a Deduplicator over the given store.
func NewDeduplicator(st ArticleStore, log logger.Logger, opts ...Option) *Deduplicator {
	if log == nil {
		log = logger.NopLogger{}
	}
	d := &Deduplicator{store: st, classifier: classify.Default(), log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Accept stores the candidate for the client. A known URL yields Duplicate and no error.
// Candidates without title or URL yield Skipped.
func (d *Deduplicator) Accept(ctx context.Context, client domain.Client, c domain.Candidate) (Result, error) {
	title := strings.TrimSpace(c.Title)
	link := strings.TrimSpace(c.URL)
	if title == "" || link == "" {
		return Skipped, nil
	}

	var published *time.Time
	if raw := strings.TrimSpace(c.RawDate); raw != "" {
		t, err := textutil.ParseDate(raw)
		if err != nil {
			d.log.DebugObj("unparseable publish date", "date_parse_failed", map[string]any{
				"url":   link,
				"raw":   raw,
				"error": err.Error(),
			})
		} else {
			published = &t
		}
	}

	title = textutil.Truncate(title, MaxTitleLength)
	source := textutil.Truncate(strings.TrimSpace(c.Source), MaxSourceLength)
	content := strings.TrimSpace(c.Content)

	summaryBase := content
	if summaryBase == "" {
		summaryBase = title
	}
	summary := textutil.Summarize(summaryBase, summarySentences)
	topic := d.classifier.Classify(title)

	saved, created, err := d.store.TryInsert(ctx, domain.Article{
		ClientID:    client.ID,
		Title:       title,
		URL:         link,
		PublishedAt: published,
		Source:      source,
		Content:     content,
		Summary:     summary,
		Topic:       topic,
	})
	if errors.Is(err, store.ErrDuplicate) || (err == nil && !created) {
		return Duplicate, nil
	}
	if err != nil {
		return Skipped, fmt.Errorf("store article: %w", err)
	}

	saved.SearchText = store.SearchText(title, summary, content)
	if err := d.store.UpdateDerived(ctx, saved.ID, summary, topic, saved.SearchText); err != nil {
		return Created, fmt.Errorf("update search text for article %d: %w", saved.ID, err)
	}

	if d.announcer != nil {
		d.announcer.Announce(ctx, saved)
	}
	return Created, nil
}
