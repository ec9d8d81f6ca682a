// Package publishers announces newly stored articles to external sinks
// (AWS SQS, AWS SNS, Google Pub/Sub and plain HTTP webhooks).
package publishers

import (
	"context"
	"strconv"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/logger"
)

// EventArticleCreated is the only event type emitted today.
const EventArticleCreated = "article.created"

// Logger is the logging contract used by publishers.
type Logger = logger.Logger

// Event is the payload delivered to every publisher.
type Event struct {
	Type        string     `json:"type"`
	ClientID    int64      `json:"client_id"`
	ArticleID   int64      `json:"article_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Topic       string     `json:"topic"`
	Summary     string     `json:"summary"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewArticleEvent builds the article.created event for a stored article.
func NewArticleEvent(a domain.Article) Event {
	return Event{
		Type:        EventArticleCreated,
		ClientID:    a.ClientID,
		ArticleID:   a.ID,
		Title:       a.Title,
		URL:         a.URL,
		Source:      a.Source,
		Topic:       a.Topic,
		Summary:     a.Summary,
		PublishedAt: a.PublishedAt,
		CreatedAt:   a.CreatedAt,
	}
}

// attributes are the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type": e.Type,
		"client_id":  strconv.FormatInt(e.ClientID, 10),
		"topic":      e.Topic,
	}
}

// Publisher delivers events to one configured destination.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return logger.NopLogger{}
	}
	return log
}
