package providers

import (
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
)

const customSourceKey = "source"

// sourceTranslator extends the default RSS translation with the item <source> title,
// which the universal item does not carry.
type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}

	rssFeed, ok := feed.(*rss.Feed)
	if !ok || out == nil {
		return out, nil
	}

	for i, item := range rssFeed.Items {
		if i >= len(out.Items) || item == nil || item.Source == nil {
			continue
		}
		label := strings.TrimSpace(item.Source.Title)
		if label == "" || out.Items[i].Link != item.Link {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = make(map[string]string, 1)
		}
		out.Items[i].Custom[customSourceKey] = label
	}
	return out, nil
}
