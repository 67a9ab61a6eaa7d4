// Package cluster groups related pains and tracks how each theme moves
// over time. Assignment is greedy: a pain joins the best-matching cluster
// above the similarity threshold, otherwise it seeds a new one.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leadscout/leadscout/internal/store"
)

// Config bounds clustering behavior.
type Config struct {
	SimilarityThreshold float64
	TrendWindow         time.Duration
	TrendMinSamples     int
	TrendMargin         float64
}

// Clusterer assigns pains to clusters and maintains their statistics.
type Clusterer struct {
	store      *store.Store
	similarity Similarity
	cfg        Config
	now        func() time.Time
}

// New builds a Clusterer.
func New(s *store.Store, sim Similarity, cfg Config) *Clusterer {
	return &Clusterer{store: s, similarity: sim, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// AssignAll folds every unclustered pain of the program into the cluster
// set, then refreshes stats and trends for touched clusters. Returns how
// many pains were assigned.
func (c *Clusterer) AssignAll(ctx context.Context, programID int64) (int, error) {
	pains, err := c.store.UnclusteredPains(ctx, programID)
	if err != nil {
		return 0, err
	}
	touched := make(map[int64]bool)
	assigned := 0
	for _, p := range pains {
		clusterID, err := c.assign(ctx, p)
		if err != nil {
			return assigned, err
		}
		touched[clusterID] = true
		assigned++
	}
	for id := range touched {
		if _, err := c.store.RecomputeClusterStats(ctx, id); err != nil {
			return assigned, err
		}
		if err := c.refreshTrend(ctx, id); err != nil {
			return assigned, err
		}
	}
	return assigned, nil
}

// assign places one pain and returns the cluster id it landed in.
func (c *Clusterer) assign(ctx context.Context, p *store.Pain) (int64, error) {
	clusters, err := c.store.ListClusters(ctx, p.ProgramID)
	if err != nil {
		return 0, err
	}

	var best *store.Cluster
	bestScore := 0.0
	for _, cl := range clusters {
		members, err := c.store.ListPainsByCluster(ctx, cl.ID)
		if err != nil {
			return 0, err
		}
		score, err := c.similarity.Score(ctx, p, cl, members)
		if err != nil {
			return 0, err
		}
		if score > bestScore {
			best = cl
			bestScore = score
		}
	}

	if best != nil && bestScore >= c.cfg.SimilarityThreshold {
		slog.Debug("pain joins cluster", "pain", p.ID, "cluster", best.ID, "score", fmt.Sprintf("%.2f", bestScore))
		return best.ID, c.store.AssignPainCluster(ctx, p.ID, best.ID)
	}

	created, err := c.store.CreateCluster(ctx, &store.Cluster{
		ProgramID: p.ProgramID,
		Label:     Label(p.Quote),
		Category:  p.Category,
	})
	if err != nil {
		return 0, err
	}
	slog.Debug("pain seeds new cluster", "pain", p.ID, "cluster", created.ID)
	return created.ID, c.store.AssignPainCluster(ctx, p.ID, created.ID)
}

// Label derives a short cluster label from the seeding quote.
func Label(quote string) string {
	words := strings.Fields(quote)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.ToLower(strings.Join(words, " "))
}

// refreshTrend classifies the cluster's direction by comparing the last
// trend window against the one before it.
func (c *Clusterer) refreshTrend(ctx context.Context, clusterID int64) error {
	trend, err := c.Trend(ctx, clusterID)
	if err != nil {
		return err
	}
	return c.store.SetClusterTrend(ctx, clusterID, trend)
}

// Trend computes the direction for one cluster without persisting it,
// comparing average intensity over two adjacent windows. Either window
// below the minimum sample floor forces stable; a sparse window would
// otherwise flap between rising and falling on every run.
func (c *Clusterer) Trend(ctx context.Context, clusterID int64) (string, error) {
	now := c.now()
	recentN, recentAvg, err := c.store.PainWindowStats(ctx, clusterID, now.Add(-c.cfg.TrendWindow), now)
	if err != nil {
		return "", err
	}
	previousN, previousAvg, err := c.store.PainWindowStats(ctx, clusterID, now.Add(-2*c.cfg.TrendWindow), now.Add(-c.cfg.TrendWindow))
	if err != nil {
		return "", err
	}

	if recentN < c.cfg.TrendMinSamples || previousN < c.cfg.TrendMinSamples {
		return store.TrendStable, nil
	}
	margin := c.cfg.TrendMargin
	switch {
	case recentAvg > previousAvg*(1+margin):
		return store.TrendRising, nil
	case recentAvg < previousAvg*(1-margin):
		return store.TrendFalling, nil
	default:
		return store.TrendStable, nil
	}
}
