package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"stockpulse/services/ingest"
)

// Runner executes one full update pass over the symbol list.
type Runner interface {
	Run(ctx context.Context, symbols []string) ingest.Summary
}

// Scheduler fires ingestion runs on a fixed minute cadence while the market
// window is open. At most one run is ever active: every entry point goes
// through the same run-in-progress guard, so a tick that fires while a run
// is still executing is absorbed rather than queued, and the same holds for
// RunNow racing the first scheduled tick at startup.
type Scheduler struct {
	cron    *gocron.Scheduler
	runner  Runner
	symbols []string
	window  Window
	every   int // minutes between ticks
	running sync.Mutex
	log     zerolog.Logger
}

// New creates a scheduler. The symbol list, market window and cadence are
// fixed for the process lifetime.
func New(runner Runner, symbols []string, window Window, everyMinutes int, log zerolog.Logger) *Scheduler {
	if everyMinutes <= 0 {
		everyMinutes = 5
	}
	return &Scheduler{
		cron:    gocron.NewScheduler(time.Local),
		runner:  runner,
		symbols: symbols,
		window:  window,
		every:   everyMinutes,
		log:     log,
	}
}

// Start registers the recurring job and begins ticking in the background.
// The context bounds every run started from here; cancelling it lets an
// in-flight run wind down cleanly.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.Every(s.every).Minutes().SingletonMode().Do(func() {
		s.tick(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.StartAsync()
	s.log.Info().
		Int("interval_minutes", s.every).
		Int("symbols", len(s.symbols)).
		Msg("scheduler started")
	return nil
}

// Stop halts the timer. An in-flight run finishes on its own; no new ticks
// fire afterwards.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow performs one market-hours-gated update immediately, outside the
// timer. Used for the startup run.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.TryLock() {
		s.log.Debug().Msg("update already in progress, tick absorbed")
		return
	}
	defer s.running.Unlock()

	now := time.Now()
	if !IsMarketOpen(now, s.window) {
		s.log.Debug().Str("time", now.Format("15:04")).Msg("market closed, tick skipped")
		return
	}

	started := time.Now()
	sum := s.runner.Run(ctx, s.symbols)
	s.log.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Dur("elapsed", time.Since(started)).
		Msg("update cycle finished")
}
