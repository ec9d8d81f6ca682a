package domain

import (
	"fmt"
	"strings"
	"time"
)

// Domain contains core models shared across the harvester.

// SourceKind is the closed set of registered source kinds.
type SourceKind string

const (
	SourceKindFeed    SourceKind = "feed"
	SourceKindScrape  SourceKind = "scrape"
	SourceKindSitemap SourceKind = "sitemap"
	SourceKindAPI     SourceKind = "api"
)

// ParseSourceKind maps user input (including legacy RSS/SCRAPE labels) to a SourceKind.
func ParseSourceKind(raw string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "feed", "rss", "atom":
		return SourceKindFeed, nil
	case "scrape", "html":
		return SourceKindScrape, nil
	case "sitemap", "news-sitemap":
		return SourceKindSitemap, nil
	case "api":
		return SourceKindAPI, nil
	}
	return "", fmt.Errorf("unknown source kind %q", raw)
}

// Level is the severity of a FetchLogEntry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// ParseLevel validates a log level string.
func ParseLevel(raw string) (Level, error) {
	switch lvl := Level(strings.ToLower(strings.TrimSpace(raw))); lvl {
	case LevelInfo, LevelWarning, LevelError, LevelSuccess:
		return lvl, nil
	}
	return "", fmt.Errorf("unknown log level %q", raw)
}

// Client is a tenant whose keywords drive a fetch.
type Client struct {
	ID        int64             `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Keywords  []string          `json:"keywords" yaml:"keywords"`
	Domains   []string          `json:"domains,omitempty" yaml:"domains"`
	Operators map[string]string `json:"operators,omitempty" yaml:"operators"`
}

// Source is an operator-registered feed or page.
type Source struct {
	ID            int64      `json:"id" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	URL           string     `json:"url" yaml:"url"`
	Kind          SourceKind `json:"kind" yaml:"kind"`
	Active        bool       `json:"active" yaml:"active"`
	TitleSelector string     `json:"title_selector,omitempty" yaml:"title_selector"`
	LinkSelector  string     `json:"link_selector,omitempty" yaml:"link_selector"`
	DateSelector  string     `json:"date_selector,omitempty" yaml:"date_selector"`
}

// Article is the persisted, deduplicated record.
type Article struct {
	ID          int64      `json:"id"`
	ClientID    int64      `json:"client_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Source      string     `json:"source"`
	Content     string     `json:"content,omitempty"`
	Summary     string     `json:"summary"`
	Topic       string     `json:"topic"`
	Excluded    bool       `json:"excluded"`
	SearchText  string     `json:"search_text,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Candidate is the transient adapter output consumed by the deduplicator.
type Candidate struct {
	Title   string
	URL     string
	RawDate string
	Source  string
	Content string
}

// FetchLogEntry is an append-only record of one orchestration event.
type FetchLogEntry struct {
	ID         int64     `json:"id"`
	Time       time.Time `json:"time"`
	Level      Level     `json:"level"`
	ClientID   *int64    `json:"client_id,omitempty"`
	ClientName string    `json:"client_name,omitempty"`
	SourceID   *int64    `json:"source_id,omitempty"`
	SourceName string    `json:"source_name,omitempty"`
	Message    string    `json:"message"`
}
