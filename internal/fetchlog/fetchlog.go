// Package fetchlog records orchestration events both to the persistent fetch log and to the process logger.
package fetchlog

import (
	"context"
	"sync"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/logger"
)

// Sink persists fetch log entries.
type Sink interface {
	Append(ctx context.Context, e domain.FetchLogEntry) error
}

// Event is one orchestration occurrence.
type Event struct {
	Level   domain.Level
	Name    string
	Client  *domain.Client
	Source  *domain.Source
	Label   string
	Message string
	Fields  map[string]any
}

// Emitter fans an Event out to the Sink and the Logger.
type Emitter struct {
	sink Sink
	log  logger.Logger
	now  func() time.Time
}

// NewEmitter builds an Emitter. A nil sink only logs.
func NewEmitter(sink Sink, log logger.Logger) *Emitter {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Emitter{sink: sink, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Emit records the event. Sink failures are logged and swallowed.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	entry := domain.FetchLogEntry{
		Time:       e.now(),
		Level:      ev.Level,
		SourceName: ev.Label,
		Message:    ev.Message,
	}

	fields := make(map[string]any, len(ev.Fields)+4)
	for k, v := range ev.Fields {
		fields[k] = v
	}
	if ev.Client != nil {
		id := ev.Client.ID
		entry.ClientID = &id
		entry.ClientName = ev.Client.Name
		fields["client_id"] = id
		fields["client"] = ev.Client.Name
	}
	if ev.Source != nil {
		id := ev.Source.ID
		entry.SourceID = &id
		if entry.SourceName == "" {
			entry.SourceName = ev.Source.Name
		}
	}
	if entry.SourceName != "" {
		fields["source"] = entry.SourceName
	}
	fields["level"] = string(ev.Level)

	switch ev.Level {
	case domain.LevelError:
		e.log.ErrorObj(ev.Message, ev.Name, fields)
	case domain.LevelWarning:
		e.log.WarnObj(ev.Message, ev.Name, fields)
	default:
		e.log.InfoObj(ev.Message, ev.Name, fields)
	}

	if e.sink == nil {
		return
	}
	if err := e.sink.Append(ctx, entry); err != nil {
		e.log.ErrorObj("persist fetch log failed", "fetch_log_error", map[string]any{
			"message": ev.Message,
			"error":   err.Error(),
		})
	}
}

// Recorder is an in-memory Sink.
type Recorder struct {
	mu      sync.Mutex
	entries []domain.FetchLogEntry
}

// Append stores a copy of the entry.
func (r *Recorder) Append(_ context.Context, e domain.FetchLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns the recorded entries in append order.
func (r *Recorder) Entries() []domain.FetchLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.FetchLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ByLevel returns the recorded entries with the given level.
func (r *Recorder) ByLevel(level domain.Level) []domain.FetchLogEntry {
	var out []domain.FetchLogEntry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
