// Package scheduler runs enabled programs at their configured daily time.
// A flock-guarded tick loop scans the program table; overlap within one
// process is prevented by the runner's per-program lock, and per-day
// dispatch bookkeeping stops a slow tick from firing the same program
// twice.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leadscout/leadscout/internal/config"
	"github.com/leadscout/leadscout/internal/runner"
	"github.com/leadscout/leadscout/internal/store"
)

// Dispatcher is the slice of the runner the scheduler needs.
type Dispatcher interface {
	RunOnce(ctx context.Context, programID int64) (*store.RunReport, error)
}

// Scheduler owns the daemon tick loop.
type Scheduler struct {
	cfg        config.SchedulerConfig
	store      *store.Store
	dispatcher Dispatcher
	lock       *FileLock
	sem        chan struct{}

	mu         sync.Mutex
	dispatched map[int64]string // program id -> "2006-01-02" of last dispatch
	now        func() time.Time
}

// New creates a Scheduler.
func New(cfg config.SchedulerConfig, s *store.Store, d Dispatcher) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 60 * time.Second
	}
	if cfg.MaxConcRuns <= 0 {
		cfg.MaxConcRuns = 2
	}
	return &Scheduler{
		cfg:        cfg,
		store:      s,
		dispatcher: d,
		lock:       NewFileLock(cfg.LockPath),
		sem:        make(chan struct{}, cfg.MaxConcRuns),
		dispatched: make(map[int64]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run starts the tick loop. Blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler started", "tick", s.cfg.TickInterval)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick scans for programs due at the current wall-clock time.
func (s *Scheduler) tick(ctx context.Context) {
	acquired, err := s.lock.TryLock()
	if err != nil {
		slog.Warn("scheduler lock error", "error", err)
		return
	}
	if !acquired {
		slog.Debug("scheduler tick skipped: lock held by another process")
		return
	}
	defer s.lock.Unlock()

	programs, err := s.store.ListPrograms(ctx, true)
	if err != nil {
		slog.Warn("scheduler program scan failed", "error", err)
		return
	}

	now := s.now()
	for _, p := range programs {
		if !s.due(p, now) {
			continue
		}
		s.dispatch(ctx, p.ID)
	}
}

// due checks whether the program's HH:MM has passed today and it has not
// been dispatched yet today.
func (s *Scheduler) due(p *store.Program, now time.Time) bool {
	if p.ScheduleTime == "" {
		return false
	}
	hour, minute, err := ParseScheduleTime(p.ScheduleTime)
	if err != nil {
		slog.Warn("invalid schedule time", "program", p.ID, "value", p.ScheduleTime)
		return false
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.Before(at) {
		return false
	}

	day := now.Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dispatched[p.ID] == day {
		return false
	}
	s.dispatched[p.ID] = day
	return true
}

// dispatch starts the run if a concurrency slot is free; a full daemon
// pushes the program back to the next tick.
func (s *Scheduler) dispatch(ctx context.Context, programID int64) {
	select {
	case s.sem <- struct{}{}:
	default:
		slog.Warn("scheduled run deferred: concurrency limit", "program", programID)
		s.mu.Lock()
		delete(s.dispatched, programID)
		s.mu.Unlock()
		return
	}

	slog.Info("dispatching scheduled run", "program", programID)
	go func() {
		defer func() { <-s.sem }()
		report, err := s.dispatcher.RunOnce(ctx, programID)
		switch {
		case errors.Is(err, runner.ErrAlreadyRunning):
			slog.Info("scheduled run skipped: already running", "program", programID)
		case err != nil:
			slog.Error("scheduled run failed", "program", programID, "error", err)
		default:
			slog.Info("scheduled run finished", "program", programID, "run", report.ReportID)
		}
	}()
}

// ParseScheduleTime parses a "HH:MM" daily schedule.
func ParseScheduleTime(v string) (hour, minute int, err error) {
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("schedule time %q: want HH:MM", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("schedule time %q: bad hour", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule time %q: bad minute", v)
	}
	return hour, minute, nil
}
