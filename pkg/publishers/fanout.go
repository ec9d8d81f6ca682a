package publishers

import (
	"context"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/domain"
)

const defaultPublishTimeout = 10 * time.Second

// Fanout announces created articles to every publisher. Delivery failures are
// logged and never reach the caller.
type Fanout struct {
	publishers []Publisher
	log        Logger
	timeout    time.Duration
}

// NewFanout builds a Fanout over pubs.
func NewFanout(pubs []Publisher, log Logger) *Fanout {
	return &Fanout{publishers: pubs, log: ensureLogger(log), timeout: defaultPublishTimeout}
}

// Len reports how many publishers are attached.
func (f *Fanout) Len() int { return len(f.publishers) }

// Announce publishes the article.created event.
func (f *Fanout) Announce(ctx context.Context, a domain.Article) {
	if f == nil || len(f.publishers) == 0 {
		return
	}

	evt := NewArticleEvent(a)
	for _, p := range f.publishers {
		pctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := p.Publish(pctx, evt)
		cancel()
		if err != nil {
			f.log.WarnObj("publish article event failed", "publisher_error", map[string]any{
				"publisher_id":   p.ID(),
				"publisher_type": p.Type(),
				"article_id":     a.ID,
				"url":            a.URL,
				"error":          err.Error(),
			})
		}
	}
}
