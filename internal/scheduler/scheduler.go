// Package scheduler repeats full evaluation runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/elonfeng/clubradar/internal/logger"
	"github.com/elonfeng/clubradar/internal/store"
	"github.com/elonfeng/clubradar/pkg/alert"
	"github.com/elonfeng/clubradar/pkg/engine"
	"github.com/elonfeng/clubradar/pkg/source"
)

// DefaultSpec runs an evaluation every six hours.
const DefaultSpec = "@every 6h"

// Options wires a Scheduler. Engine and Load are required; the rest is optional.
type Options struct {
	Engine *engine.Engine
	// Load builds a fresh snapshot for every run.
	Load    func(ctx context.Context) *source.Snapshot
	Store   store.Store
	Alerts  *alert.Manager
	Publish func(*engine.Result)
	Spec    string
	Top     int
}

// Scheduler runs the engine immediately and then on schedule.
type Scheduler struct {
	opts Options

	mu         sync.Mutex // one run at a time
	lastLeader int
}

// New creates a new scheduler.
func New(opts Options) *Scheduler {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Top <= 0 {
		opts.Top = alert.DefaultTop
	}
	return &Scheduler{opts: opts}
}

// RunOnce performs one evaluation: run, persist, publish, alert on a new leader.
// Persistence and alert failures are logged; a persistence failure is also returned.
func (s *Scheduler) RunOnce(ctx context.Context) (*engine.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "scheduler"})

	snap := s.opts.Load(ctx)
	result, err := s.opts.Engine.Run(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("evaluation run: %w", err)
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{RunID: &result.RunID})

	previous := s.previousLeader(ctx)

	var saveErr error
	if s.opts.Store != nil {
		if err := s.opts.Store.SaveRun(ctx, result.Record()); err != nil {
			saveErr = fmt.Errorf("save run %d: %w", result.RunID, err)
			slog.ErrorContext(ctx, "run not persisted", "error", err)
		}
	}
	if leader, ok := result.Leader(); ok {
		s.lastLeader = leader.ClubID
	}

	if s.opts.Publish != nil {
		s.opts.Publish(result)
	}

	if s.opts.Alerts.HasNotifiers() {
		if n, changed := alert.LeaderChange(result.RunID, result.Model.Name, result.Rankings(), previous, s.opts.Top); changed {
			if err := s.opts.Alerts.Broadcast(ctx, n); err != nil {
				slog.WarnContext(ctx, "alert delivery failed", "error", err)
			} else {
				slog.InfoContext(ctx, "leader change announced", "leader", n.Leader.ClubName)
			}
		}
	}
	return result, saveErr
}

// previousLeader is the leader of the last stored run, or of the last run in
// this process when there is no store. 0 means none.
func (s *Scheduler) previousLeader(ctx context.Context) int {
	if s.opts.Store == nil {
		return s.lastLeader
	}
	run, err := s.opts.Store.LatestRun(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 0
	case err != nil:
		slog.WarnContext(ctx, "previous run unavailable", "error", err)
		return s.lastLeader
	}
	return run.LeaderClubID
}

// Run evaluates immediately and then on the cron schedule. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})), cron.WithLogger(cronLogger{}))
	if _, err := c.AddFunc(s.opts.Spec, func() { s.runLogged(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.opts.Spec, err)
	}

	slog.InfoContext(ctx, "scheduler: initial evaluation")
	s.runLogged(ctx)

	c.Start()
	slog.InfoContext(ctx, "scheduler: running", "schedule", s.opts.Spec)

	<-ctx.Done()
	<-c.Stop().Done()
	slog.InfoContext(ctx, "scheduler: stopped")
	return ctx.Err()
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduled evaluation failed", "error", err)
	}
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
