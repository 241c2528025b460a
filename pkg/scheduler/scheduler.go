// Package scheduler runs a job right away and then on a fixed period, never
// letting two runs overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/levenlabs/go-lflag"

	"github.com/bwestlin/pi-home-info/pkg/log"
)

// DefaultInterval is how often a job runs when no interval is configured.
const DefaultInterval = 5 * time.Minute

// Scheduler periodically runs a single job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc

	// held while the job runs so Stop can wait for it
	jobMu sync.Mutex
}

// New creates a new Scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  DefaultInterval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Configured sets up the Scheduler based on flags.
func Configured() *Scheduler {
	s := New()

	interval := lflag.Duration("interval", DefaultInterval, "How often to refresh prices and temperatures")

	lflag.Do(func() {
		if *interval <= 0 {
			panic(fmt.Sprintf("interval must be positive: %s", *interval))
		}
		s.interval = *interval
	})

	return s
}

// Interval returns the configured period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start runs fn immediately and then every period until Stop is called. A
// tick that comes due while fn is still running waits for it, so runs never
// overlap. fn gets a context that is canceled by Stop.
func (s *Scheduler) Start(period time.Duration, fn func(ctx context.Context)) error {
	if period <= 0 {
		return fmt.Errorf("invalid period: %s", period)
	}
	if fn == nil {
		return errors.New("job is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	if s.ctx.Err() != nil {
		return errors.New("scheduler already stopped")
	}

	_, err := s.scheduler.Every(period).SingletonMode().Do(func() {
		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		if s.ctx.Err() != nil {
			return
		}
		fn(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	s.started = true
	s.scheduler.StartAsync()
	log.Ctx(s.ctx).DebugContext(s.ctx, "scheduler started", slog.Duration("period", period))
	return nil
}

// Stop cancels the context of a running job, stops future runs and waits for
// the running job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if s.started {
		s.scheduler.Stop()
		s.started = false
	}
	s.jobMu.Lock()
	s.jobMu.Unlock()
}
