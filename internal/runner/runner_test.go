package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leadscout/leadscout/internal/cluster"
	"github.com/leadscout/leadscout/internal/config"
	"github.com/leadscout/leadscout/internal/extract"
	"github.com/leadscout/leadscout/internal/qualify"
	"github.com/leadscout/leadscout/internal/source"
	"github.com/leadscout/leadscout/internal/store"
)

type fakeConnector struct {
	activities []source.Activity
	err        error
}

func (f *fakeConnector) Fetch(ctx context.Context, chatIDs []string, since time.Time, limit int) ([]source.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.activities, nil
}

// fakeQualifier scores by user id and can run a hook before each call.
type fakeQualifier struct {
	scores map[string]int
	pains  map[string][]qualify.PainSignal
	errs   map[string]error
	before func(userID string)
	calls  int
}

func (f *fakeQualifier) Qualify(ctx context.Context, program *store.Program, c extract.Candidate) (*qualify.Result, error) {
	f.calls++
	if f.before != nil {
		f.before(c.UserID)
	}
	if err := f.errs[c.UserID]; err != nil {
		return nil, err
	}
	return &qualify.Result{Score: f.scores[c.UserID], Reasoning: "test", Pains: f.pains[c.UserID]}, nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := store.New(db)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return s
}

func testProgram(t *testing.T, s *store.Store, mode string) *store.Program {
	t.Helper()
	ctx := context.Background()
	if _, err := s.EnsureOwner(ctx, 1, "tester"); err != nil {
		t.Fatalf("ensure owner: %v", err)
	}
	p, err := s.CreateProgram(ctx, &store.Program{
		OwnerID: 1, Name: "pilot", Niche: "b2b saas", Chats: []string{"chat-1"},
		SafetyMode: mode, MinScore: 60, MaxLeadsPerRun: 20, Enabled: true,
	})
	if err != nil {
		t.Fatalf("create program: %v", err)
	}
	return p
}

func newRunner(s *store.Store, src source.Connector, q Qualifier) *Runner {
	cl := cluster.New(s, cluster.Lexical{}, cluster.Config{
		SimilarityThreshold: 0.3,
		TrendWindow:         7 * 24 * time.Hour,
		TrendMinSamples:     3,
		TrendMargin:         0.5,
	})
	return New(s, src, q, cl,
		config.SafetyConfig{FastConcurrency: 3, NormalDelay: 0, CarefulDelay: 0, CarefulMaxCandidates: 1},
		config.PipelineConfig{FreshnessWindow: 10 * 24 * time.Hour, CallTimeout: time.Second},
	)
}

func activityBatch(now time.Time) []source.Activity {
	return []source.Activity{
		{ChatID: "chat-1", UserID: "u1", Username: "alice", MessageText: "our crm pricing is brutal", SentAt: now.Add(-time.Hour)},
		{ChatID: "chat-1", UserID: "u2", Username: "bob", MessageText: "just lurking", SentAt: now.Add(-2 * time.Hour)},
		{ChatID: "chat-1", UserID: "u3", Username: "carol", MessageText: "crm pricing hurts us too", SentAt: now.Add(-3 * time.Hour)},
	}
}

func TestRunOnceFullPipeline(t *testing.T) {
	s := testStore(t)
	p := testProgram(t, s, "normal")
	now := time.Now().UTC()
	src := &fakeConnector{activities: activityBatch(now)}
	q := &fakeQualifier{
		scores: map[string]int{"u1": 85, "u2": 10, "u3": 75},
		pains: map[string][]qualify.PainSignal{
			"u1": {{Category: "pricing", Intensity: 4, Quote: "our crm pricing is brutal"}},
			"u3": {{Category: "pricing", Intensity: 3, Quote: "crm pricing hurts us too"}},
		},
	}

	r := newRunner(s, src, q)
	report, err := r.RunOnce(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Status != store.RunStatusCompleted {
		t.Fatalf("status = %q", report.Status)
	}
	if report.CandidatesSeen != 3 || report.LeadsCreated != 3 {
		t.Fatalf("report = %+v", report)
	}
	if report.PainsExtracted != 2 {
		t.Fatalf("pains = %d, want 2", report.PainsExtracted)
	}

	leads, err := s.ListLeads(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	qualified := 0
	for _, l := range leads {
		if l.Status == store.LeadStatusQualified {
			qualified++
		}
	}
	if qualified != 2 {
		t.Fatalf("qualified = %d, want 2", qualified)
	}

	clusters, err := s.ListClusters(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if len(clusters) != 1 || clusters[0].PainCount != 2 {
		t.Fatalf("clusters = %+v", clusters)
	}

	reports, err := s.ListRunReports(context.Background(), p.ID, 10)
	if err != nil || len(reports) != 1 {
		t.Fatalf("run reports = %v, %v", reports, err)
	}
}

func TestRunOnceRerunIsIdempotent(t *testing.T) {
	s := testStore(t)
	p := testProgram(t, s, "normal")
	now := time.Now().UTC()
	src := &fakeConnector{activities: activityBatch(now)}
	q := &fakeQualifier{
		scores: map[string]int{"u1": 85, "u2": 10, "u3": 75},
		pains: map[string][]qualify.PainSignal{
			"u1": {{Category: "pricing", Intensity: 4, Quote: "our crm pricing is brutal"}},
		},
	}

	r := newRunner(s, src, q)
	if _, err := r.RunOnce(context.Background(), p.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := r.RunOnce(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.LeadsCreated != 0 || second.LeadsUpdated != 3 {
		t.Fatalf("second report = %+v, want only updates", second)
	}
	if second.PainsExtracted != 0 {
		t.Fatalf("pains on rerun = %d, want 0", second.PainsExtracted)
	}
	leads, _ := s.ListLeads(context.Background(), p.ID)
	if len(leads) != 3 {
		t.Fatalf("lead count = %d after rerun, want 3", len(leads))
	}
}

func TestRunOnceConnectorUnavailable(t *testing.T) {
	s := testStore(t)
	p := testProgram(t, s, "normal")
	src := &fakeConnector{err: fmt.Errorf("%w: broker down", source.ErrUnavailable)}
	r := newRunner(s, src, &fakeQualifier{})

	report, err := r.RunOnce(context.Background(), p.ID)
	if !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if report.Status != store.RunStatusFailed {
		t.Fatalf("status = %q, want failed", report.Status)
	}
	reports, _ := s.ListRunReports(context.Background(), p.ID, 10)
	if len(reports) != 1 || reports[0].Status != store.RunStatusFailed {
		t.Fatalf("persisted reports = %+v", reports)
	}
}

func TestRunOnceQuotaSkips(t *testing.T) {
	s := testStore(t)
	s.WeeklyFreeQuota = 1
	p := testProgram(t, s, "normal")
	now := time.Now().UTC()
	src := &fakeConnector{activities: activityBatch(now)}
	q := &fakeQualifier{scores: map[string]int{"u1": 85, "u2": 70, "u3": 75}}

	r := newRunner(s, src, q)
	report, err := r.RunOnce(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Status != store.RunStatusCompleted {
		t.Fatalf("status = %q, quota exhaustion must not fail the run", report.Status)
	}
	if report.LeadsCreated != 1 {
		t.Fatalf("created = %d, want 1", report.LeadsCreated)
	}
	if report.QuotaSkips == 0 {
		t.Fatal("expected quota skips recorded")
	}
}

func TestRunOnceAlreadyRunning(t *testing.T) {
	s := testStore(t)
	p := testProgram(t, s, "normal")
	now := time.Now().UTC()
	src := &fakeConnector{activities: activityBatch(now)}

	started := make(chan struct{})
	proceed := make(chan struct{})
	q := &fakeQualifier{
		scores: map[string]int{"u1": 85, "u2": 10, "u3": 75},
		before: func(userID string) {
			if userID == "u1" {
				close(started)
				<-proceed
			}
		},
	}
	r := newRunner(s, src, q)

	done := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(context.Background(), p.ID)
		done <- err
	}()
	<-started

	_, err := r.RunOnce(context.Background(), p.ID)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}
	close(proceed)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}

	// The lock releases with the run; a fresh run proceeds. Drop the hook so
	// the followup run does not close the already-closed started channel.
	q.before = nil
	if _, err := r.RunOnce(context.Background(), p.ID); err != nil {
		t.Fatalf("followup run: %v", err)
	}
}

func TestRunOnceDisableMidRunStopsDispatch(t *testing.T) {
	s := testStore(t)
	p := testProgram(t, s, "normal")
	now := time.Now().UTC()
	src := &fakeConnector{activities: activityBatch(now)}
	q := &fakeQualifier{scores: map[string]int{"u1": 85, "u2": 70, "u3": 75}}
	q.before = func(userID string) {
		// Disable after the first call lands; dispatch checks before each
		// later candidate.
		if q.calls == 1 {
			if err := s.SetProgramEnabled(context.Background(), p.ID, false); err != nil {
				t.Errorf("disable: %v", err)
			}
		}
	}

	r := newRunner(s, src, q)
	report, err := r.RunOnce(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Status != store.RunStatusCompleted {
		t.Fatalf("status = %q, partial run must complete", report.Status)
	}
	if q.calls != 1 {
		t.Fatalf("calls = %d, want dispatch stopped after 1", q.calls)
	}
	if report.LeadsCreated != 1 {
		t.Fatalf("created = %d, want 1", report.LeadsCreated)
	}
}

func TestRunOnceQualificationFailureIsCounted(t *testing.T) {
	s := testStore(t)
	p := testProgram(t, s, "normal")
	now := time.Now().UTC()
	src := &fakeConnector{activities: activityBatch(now)}
	q := &fakeQualifier{
		scores: map[string]int{"u1": 85, "u3": 75},
		errs:   map[string]error{"u2": &qualify.ParseError{Raw: "garbled"}},
	}

	r := newRunner(s, src, q)
	report, err := r.RunOnce(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.QualificationFailures != 1 {
		t.Fatalf("failures = %d, want 1", report.QualificationFailures)
	}
	if report.LeadsCreated != 2 {
		t.Fatalf("created = %d, the other candidates must still land", report.LeadsCreated)
	}
}

func TestRunOnceCarefulModeCapsCandidates(t *testing.T) {
	s := testStore(t)
	p := testProgram(t, s, "careful")
	now := time.Now().UTC()
	src := &fakeConnector{activities: activityBatch(now)}
	q := &fakeQualifier{scores: map[string]int{"u1": 85, "u2": 70, "u3": 75}}

	r := newRunner(s, src, q)
	report, err := r.RunOnce(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.CandidatesSeen != 1 {
		t.Fatalf("candidates = %d, careful cap is 1 in this config", report.CandidatesSeen)
	}
	if q.calls != 1 {
		t.Fatalf("calls = %d, want 1", q.calls)
	}
}

func TestResolvePolicy(t *testing.T) {
	cfg := config.SafetyConfig{FastConcurrency: 4, NormalDelay: 2 * time.Second, CarefulDelay: 5 * time.Second, CarefulMaxCandidates: 25}

	fast := ResolvePolicy("fast", cfg)
	if fast.MaxConcurrency != 4 || fast.InterCallDelay != 0 {
		t.Fatalf("fast = %+v", fast)
	}
	normal := ResolvePolicy("normal", cfg)
	if normal.MaxConcurrency != 1 || normal.InterCallDelay != 2*time.Second {
		t.Fatalf("normal = %+v", normal)
	}
	careful := ResolvePolicy("careful", cfg)
	if careful.MaxCandidatesPerRun != 25 || careful.InterCallDelay != 5*time.Second {
		t.Fatalf("careful = %+v", careful)
	}
	unknown := ResolvePolicy("reckless", cfg)
	if unknown.Mode != "normal" {
		t.Fatalf("unknown mode = %+v, want normal fallback", unknown)
	}
}
