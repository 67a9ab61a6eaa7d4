package cluster

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/leadscout/leadscout/internal/store"
)

func newTestEnv(t *testing.T) (*store.Store, *store.Program, *store.Lead) {
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
	ctx := context.Background()
	if _, err := s.EnsureOwner(ctx, 1, "tester"); err != nil {
		t.Fatalf("ensure owner: %v", err)
	}
	p, err := s.CreateProgram(ctx, &store.Program{OwnerID: 1, Name: "n", Niche: "x", MinScore: 50, Enabled: true})
	if err != nil {
		t.Fatalf("create program: %v", err)
	}
	lead, _, err := s.UpsertLead(ctx, p, store.LeadUpsert{UserID: "u1", Score: 80})
	if err != nil {
		t.Fatalf("upsert lead: %v", err)
	}
	return s, p, lead
}

func insertPain(t *testing.T, s *store.Store, lead *store.Lead, category, quote string, at time.Time) *store.Pain {
	t.Helper()
	p := &store.Pain{LeadID: lead.ID, ProgramID: lead.ProgramID, Category: category, Intensity: 3, Quote: quote, ExtractedAt: at}
	if _, err := s.InsertPain(context.Background(), p); err != nil {
		t.Fatalf("insert pain: %v", err)
	}
	return p
}

func testConfig() Config {
	return Config{SimilarityThreshold: 0.3, TrendWindow: 7 * 24 * time.Hour, TrendMinSamples: 3, TrendMargin: 0.5}
}

func TestAssignAllGroupsSimilarPains(t *testing.T) {
	s, p, lead := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertPain(t, s, lead, "pricing", "crm pricing way too expensive monthly", now)
	insertPain(t, s, lead, "pricing", "monthly crm pricing too expensive", now)
	insertPain(t, s, lead, "hiring", "cannot find senior engineers anywhere", now)

	c := New(s, Lexical{}, testConfig())
	assigned, err := c.AssignAll(ctx, p.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned != 3 {
		t.Fatalf("assigned = %d, want 3", assigned)
	}

	clusters, err := s.ListClusters(ctx, p.ID)
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("cluster count = %d, want 2", len(clusters))
	}
	if clusters[0].PainCount != 2 {
		t.Fatalf("largest cluster pain_count = %d, want 2", clusters[0].PainCount)
	}
	if clusters[0].Category != "pricing" {
		t.Fatalf("largest cluster category = %q", clusters[0].Category)
	}
}

func TestCategoryMismatchNeverJoins(t *testing.T) {
	s, p, lead := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Identical wording but different categories must stay apart.
	insertPain(t, s, lead, "pricing", "everything is broken and expensive", now)
	insertPain(t, s, lead, "tooling", "everything is broken and expensive too", now)

	c := New(s, Lexical{}, testConfig())
	if _, err := c.AssignAll(ctx, p.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	clusters, err := s.ListClusters(ctx, p.ID)
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("cluster count = %d, want 2", len(clusters))
	}
}

func TestAssignAllIsIncrementallyStable(t *testing.T) {
	s, p, lead := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	c := New(s, Lexical{}, testConfig())

	insertPain(t, s, lead, "pricing", "crm pricing too expensive for us", now)
	if _, err := c.AssignAll(ctx, p.ID); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// A later run adds a similar pain; it joins the existing cluster and
	// stats stay a pure fold over members.
	insertPain(t, s, lead, "pricing", "crm pricing really too expensive", now)
	if _, err := c.AssignAll(ctx, p.ID); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	clusters, err := s.ListClusters(ctx, p.ID)
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("cluster count = %d, want 1", len(clusters))
	}
	if clusters[0].PainCount != 2 {
		t.Fatalf("pain_count = %d, want 2", clusters[0].PainCount)
	}

	// Empty pass is a no-op.
	assigned, err := c.AssignAll(ctx, p.ID)
	if err != nil {
		t.Fatalf("third pass: %v", err)
	}
	if assigned != 0 {
		t.Fatalf("assigned = %d on empty pass, want 0", assigned)
	}
}

func TestTrendBelowFloorIsStable(t *testing.T) {
	s, p, lead := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertPain(t, s, lead, "pricing", "crm pricing too expensive", now)
	c := New(s, Lexical{}, testConfig())
	if _, err := c.AssignAll(ctx, p.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	clusters, _ := s.ListClusters(ctx, p.ID)
	if clusters[0].Trend != store.TrendStable {
		t.Fatalf("trend = %q, want stable below sample floor", clusters[0].Trend)
	}
}

// fillWindow puts n pains of one intensity into a cluster, spread over the
// hours before ref.
func fillWindow(t *testing.T, s *store.Store, lead *store.Lead, cl *store.Cluster, n, intensity int, ref time.Time) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		at := ref.Add(-time.Duration(i+1) * time.Hour)
		pn := &store.Pain{
			LeadID: lead.ID, ProgramID: lead.ProgramID, Category: "pricing",
			Intensity: intensity, Quote: fmt.Sprintf("quote %d %s %d", cl.ID, ref, i), ExtractedAt: at,
		}
		if _, err := s.InsertPain(ctx, pn); err != nil {
			t.Fatalf("insert pain: %v", err)
		}
		if err := s.AssignPainCluster(ctx, pn.ID, cl.ID); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
}

func TestTrendRisingAndFalling(t *testing.T) {
	s, p, lead := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	cfg := testConfig()
	c := New(s, Lexical{}, cfg)
	c.now = func() time.Time { return now }

	rising, err := s.CreateCluster(ctx, &store.Cluster{ProgramID: p.ID, Label: "crm pricing", Category: "pricing"})
	if err != nil {
		t.Fatalf("create cluster: %v", err)
	}
	// Previous window averages intensity 2, recent averages 4: past the
	// 0.5 margin, both windows at the sample floor.
	fillWindow(t, s, lead, rising, 3, 2, now.Add(-cfg.TrendWindow))
	fillWindow(t, s, lead, rising, 3, 4, now)

	trend, err := c.Trend(ctx, rising.ID)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if trend != store.TrendRising {
		t.Fatalf("trend = %q, want rising", trend)
	}

	falling, err := s.CreateCluster(ctx, &store.Cluster{ProgramID: p.ID, Label: "crm churn", Category: "pricing"})
	if err != nil {
		t.Fatalf("create cluster: %v", err)
	}
	fillWindow(t, s, lead, falling, 3, 4, now.Add(-cfg.TrendWindow))
	fillWindow(t, s, lead, falling, 3, 1, now)

	trend, err = c.Trend(ctx, falling.ID)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if trend != store.TrendFalling {
		t.Fatalf("trend = %q, want falling", trend)
	}
}

func TestTrendSparseWindowIsStable(t *testing.T) {
	s, p, lead := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	cfg := testConfig()
	c := New(s, Lexical{}, cfg)
	c.now = func() time.Time { return now }

	cl, err := s.CreateCluster(ctx, &store.Cluster{ProgramID: p.ID, Label: "crm pricing", Category: "pricing"})
	if err != nil {
		t.Fatalf("create cluster: %v", err)
	}
	// A busy recent window with an empty prior one is not a trend.
	fillWindow(t, s, lead, cl, 5, 5, now)

	trend, err := c.Trend(ctx, cl.ID)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if trend != store.TrendStable {
		t.Fatalf("trend = %q, want stable with empty previous window", trend)
	}

	// One window later the five pains sit in the previous window and the
	// recent one is empty; still stable, never extrapolated.
	c.now = func() time.Time { return now.Add(cfg.TrendWindow) }
	trend, err = c.Trend(ctx, cl.ID)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if trend != store.TrendStable {
		t.Fatalf("trend = %q, want stable with empty recent window", trend)
	}
}
