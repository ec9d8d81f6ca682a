package harvest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Adda-Baaj/newsclip/internal/logger"
)

// ErrCycleRunning is returned when a cycle is requested while another is in flight.
var ErrCycleRunning = errors.New("fetch cycle already running")

// Runner is what the scheduler triggers.
type Runner interface {
	RunFetchCycle(ctx context.Context, opts RunOptions) (Summary, error)
}

// RunState describes the scheduler's last and current cycle.
type RunState struct {
	Running         bool      `json:"running"`
	StartedAt       time.Time `json:"started_at"`
	LastCompletedAt time.Time `json:"last_completed_at"`
	LastDuration    string    `json:"last_duration"`
	LastError       string    `json:"last_error"`
	LastSummary     Summary   `json:"last_summary"`
}

// Scheduler runs a fetch cycle on a fixed interval and never overlaps cycles.
type Scheduler struct {
	interval time.Duration
	runner   Runner
	opts     RunOptions
	log      logger.Logger

	mu      sync.Mutex
	running bool
	state   RunState
}

// NewScheduler builds a Scheduler. opts is passed to every cycle.
func NewScheduler(interval time.Duration, runner Runner, opts RunOptions, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scheduler{interval: interval, runner: runner, opts: opts, log: log}
}

// Run executes one cycle immediately, then one per interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("schedule interval must be positive")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunNow(ctx); err != nil && !errors.Is(err, ErrCycleRunning) {
			s.log.ErrorObj("scheduled cycle failed", "schedule_error", map[string]any{"error": err.Error()})
		}

		s.log.InfoObj("next fetch cycle scheduled", "schedule_next", map[string]any{
			"next": time.Now().Add(s.interval).UTC().Format(time.RFC3339),
		})

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunNow executes one cycle unless another is already running.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrCycleRunning
	}
	s.running = true
	s.state.Running = true
	s.state.StartedAt = time.Now().UTC()
	s.mu.Unlock()

	start := time.Now()
	summary, err := s.runner.RunFetchCycle(ctx, s.opts)

	s.mu.Lock()
	s.running = false
	s.state.Running = false
	s.state.LastCompletedAt = time.Now().UTC()
	s.state.LastDuration = time.Since(start).Round(time.Millisecond).String()
	s.state.LastSummary = summary
	s.state.LastError = ""
	if err != nil {
		s.state.LastError = err.Error()
	}
	s.mu.Unlock()

	return err
}

// Snapshot returns a copy of the current run state.
func (s *Scheduler) Snapshot() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
