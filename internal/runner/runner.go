// Package runner orchestrates one lead-generation run: fetch activity,
// extract candidates, qualify them, persist leads and pains, then fold new
// pains into clusters. Runs are idempotent over the same activity.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadscout/leadscout/internal/cluster"
	"github.com/leadscout/leadscout/internal/config"
	"github.com/leadscout/leadscout/internal/extract"
	"github.com/leadscout/leadscout/internal/pain"
	"github.com/leadscout/leadscout/internal/qualify"
	"github.com/leadscout/leadscout/internal/source"
	"github.com/leadscout/leadscout/internal/store"
)

// Run phases, logged as the run progresses. A run can only end up failed
// while fetching; once candidates exist, every later problem degrades to a
// completed run with the failure counted in the report.
const (
	phaseFetching        = "fetching"
	phaseExtracting      = "extracting"
	phaseQualifying      = "qualifying"
	phaseExtractingPains = "extracting_pains"
	phaseClustering      = "clustering"
	phaseCompleted       = "completed"
	phaseFailed          = "failed"
)

// Qualifier scores one candidate for a program.
type Qualifier interface {
	Qualify(ctx context.Context, program *store.Program, c extract.Candidate) (*qualify.Result, error)
}

// Runner executes runs for programs. Safe for concurrent use; the lock
// table serializes runs per program.
type Runner struct {
	store     *store.Store
	source    source.Connector
	qualifier Qualifier
	collector *pain.Collector
	clusterer *cluster.Clusterer
	safety    config.SafetyConfig
	pipeline  config.PipelineConfig
	locks     *LockTable
	now       func() time.Time
}

// New wires a Runner from its collaborators.
func New(s *store.Store, src source.Connector, q Qualifier, cl *cluster.Clusterer, safety config.SafetyConfig, pipe config.PipelineConfig) *Runner {
	return &Runner{
		store:     s,
		source:    src,
		qualifier: q,
		collector: pain.NewCollector(s),
		clusterer: cl,
		safety:    safety,
		pipeline:  pipe,
		locks:     NewLockTable(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Running reports whether a run is in flight for the program.
func (r *Runner) Running(programID int64) bool {
	return r.locks.Running(programID)
}

// RunOnce executes one run for the program. It returns ErrAlreadyRunning
// without blocking when a run is already in flight, and persists a run
// report for every run that gets past the lock and program load.
func (r *Runner) RunOnce(ctx context.Context, programID int64) (*store.RunReport, error) {
	release, err := r.locks.Acquire(programID)
	if err != nil {
		return nil, err
	}
	defer release()

	program, err := r.store.GetProgram(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	if !program.Enabled {
		return nil, fmt.Errorf("program %d is disabled", programID)
	}

	policy := ResolvePolicy(program.SafetyMode, r.safety)
	log := slog.With("program", program.ID, "mode", policy.Mode)
	started := r.now()
	report := &store.RunReport{
		ReportID:  uuid.NewString(),
		ProgramID: program.ID,
		StartedAt: started,
	}
	log.Info("run started", "run", report.ReportID)

	log.Debug("run phase", "phase", phaseFetching)
	since := started.Add(-r.pipeline.FreshnessWindow)
	fetchLimit := 0
	if policy.MaxCandidatesPerRun > 0 {
		// Leave headroom so dedup across users can still fill the cap.
		fetchLimit = policy.MaxCandidatesPerRun * 10
	}
	activities, err := r.source.Fetch(ctx, program.Chats, since, fetchLimit)
	if err != nil {
		report.Status = store.RunStatusFailed
		report.FinishedAt = r.now()
		if saveErr := r.store.SaveRunReport(ctx, report); saveErr != nil {
			log.Error("failed to save run report", "error", saveErr)
		}
		log.Error("run failed", "phase", phaseFailed, "cause", phaseFetching, "error", err)
		return report, fmt.Errorf("fetch activity: %w", err)
	}

	log.Debug("run phase", "phase", phaseExtracting, "activities", len(activities))
	candidates := extract.Candidates(activities, extract.Options{
		FreshnessWindow: r.pipeline.FreshnessWindow,
		ActivityFloor:   r.pipeline.ActivityFloor,
		Now:             started,
	})
	if policy.MaxCandidatesPerRun > 0 && len(candidates) > policy.MaxCandidatesPerRun {
		candidates = candidates[:policy.MaxCandidatesPerRun]
	}
	if program.MaxLeadsPerRun > 0 && len(candidates) > program.MaxLeadsPerRun {
		candidates = candidates[:program.MaxLeadsPerRun]
	}
	report.CandidatesSeen = len(candidates)

	log.Debug("run phase", "phase", phaseQualifying, "candidates", len(candidates))
	r.qualifyAll(ctx, log, program, policy, candidates, report)

	log.Debug("run phase", "phase", phaseClustering)
	if _, err := r.clusterer.AssignAll(ctx, program.ID); err != nil {
		// Everything persisted so far survives; the next run's clustering
		// pass picks the unassigned pains back up.
		log.Warn("clustering incomplete", "error", err)
	}

	report.Status = store.RunStatusCompleted
	report.FinishedAt = r.now()
	if err := r.store.SaveRunReport(ctx, report); err != nil {
		return report, fmt.Errorf("save run report: %w", err)
	}
	log.Info("run completed",
		"run", report.ReportID,
		"phase", phaseCompleted,
		"candidates", report.CandidatesSeen,
		"created", report.LeadsCreated,
		"updated", report.LeadsUpdated,
		"failures", report.QualificationFailures,
		"quota_skips", report.QuotaSkips,
		"pains", report.PainsExtracted,
	)
	return report, nil
}

// qualifyAll pushes candidates through qualification and persistence under
// the policy's pacing. The dispatch loop re-reads the enabled flag before
// every candidate so disabling the program lands between calls, not after
// the whole batch.
func (r *Runner) qualifyAll(ctx context.Context, log *slog.Logger, program *store.Program, policy Policy, candidates []extract.Candidate, report *store.RunReport) {
	limiter := policy.Limiter()
	sem := newSemaphore(policy.MaxConcurrency)

	var mu sync.Mutex
	var wg sync.WaitGroup
	quotaDone := false

	for _, c := range candidates {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if err := sem.acquire(ctx); err != nil {
			break
		}

		enabled, err := r.store.ProgramEnabled(ctx, program.ID)
		if err != nil {
			log.Warn("enabled check failed, continuing run", "error", err)
		} else if !enabled {
			log.Info("program disabled mid-run, stopping dispatch")
			sem.release()
			break
		}
		mu.Lock()
		stop := quotaDone
		mu.Unlock()
		if stop {
			sem.release()
			break
		}

		wg.Add(1)
		go func(c extract.Candidate) {
			defer wg.Done()
			defer sem.release()

			callCtx := ctx
			var cancel context.CancelFunc
			if r.pipeline.CallTimeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, r.pipeline.CallTimeout)
				defer cancel()
			}

			result, err := r.qualifier.Qualify(callCtx, program, c)
			if err != nil {
				mu.Lock()
				report.QualificationFailures++
				mu.Unlock()
				var pe *qualify.ParseError
				if errors.As(err, &pe) {
					log.Warn("unparseable qualification reply", "user", c.UserID, "raw", pe.Raw)
				} else {
					log.Warn("qualification failed", "user", c.UserID, "error", err)
				}
				return
			}

			lead, created, err := r.store.UpsertLead(ctx, program, store.LeadUpsert{
				UserID:    c.UserID,
				Username:  c.Username,
				Score:     result.Score,
				Reasoning: result.Reasoning,
			})
			if err != nil {
				mu.Lock()
				if errors.Is(err, store.ErrQuotaExceeded) {
					report.QuotaSkips++
					quotaDone = true
					log.Warn("weekly quota exhausted, skipping remaining candidates")
				} else {
					report.QualificationFailures++
					log.Warn("lead persistence failed", "user", c.UserID, "error", err)
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			if created {
				report.LeadsCreated++
			} else {
				report.LeadsUpdated++
			}
			mu.Unlock()

			if lead.Status != store.LeadStatusQualified || len(result.Pains) == 0 {
				return
			}
			log.Debug("run phase", "phase", phaseExtractingPains, "lead", lead.ID)
			inserted, err := r.collector.Collect(ctx, lead, result.Pains)
			if err != nil {
				log.Warn("pain extraction incomplete", "lead", lead.ID, "error", err)
			}
			mu.Lock()
			report.PainsExtracted += inserted
			mu.Unlock()
		}(c)
	}
	wg.Wait()
}
