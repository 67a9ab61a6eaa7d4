package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const clusterColumns = `id, program_id, label, category, pain_count, avg_intensity, trend, post_generated, updated_at`

func scanCluster(row interface{ Scan(...any) error }) (*Cluster, error) {
	var c Cluster
	err := row.Scan(&c.ID, &c.ProgramID, &c.Label, &c.Category, &c.PainCount, &c.AvgIntensity, &c.Trend, &c.PostGenerated, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCluster starts a new cluster for a program.
func (s *Store) CreateCluster(ctx context.Context, c *Cluster) (*Cluster, error) {
	if c.Category == "" {
		c.Category = "general"
	}
	if c.Trend == "" {
		c.Trend = TrendStable
	}
	now := utcNow()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO clusters (program_id, label, category, pain_count, avg_intensity, trend, post_generated, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ProgramID, c.Label, c.Category, c.PainCount, c.AvgIntensity, c.Trend, c.PostGenerated, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create cluster: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetCluster(ctx, id)
}

// GetCluster loads one cluster by id.
func (s *Store) GetCluster(ctx context.Context, id int64) (*Cluster, error) {
	c, err := scanCluster(s.db.QueryRowContext(ctx,
		`SELECT `+clusterColumns+` FROM clusters WHERE id = ?`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get cluster: %w", err)
	}
	return c, err
}

// ListClusters returns a program's clusters, largest first.
func (s *Store) ListClusters(ctx context.Context, programID int64) ([]*Cluster, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clusterColumns+` FROM clusters WHERE program_id = ? ORDER BY pain_count DESC, id`, programID)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()

	var out []*Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecomputeClusterStats folds the member pains back into pain_count and
// avg_intensity. The stored stats are a cache; this is always safe to call
// and makes cluster state recoverable after partial runs.
func (s *Store) RecomputeClusterStats(ctx context.Context, clusterID int64) (*Cluster, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE clusters SET
			pain_count = (SELECT COUNT(*) FROM pains WHERE cluster_id = ?),
			avg_intensity = (SELECT COALESCE(AVG(intensity), 0) FROM pains WHERE cluster_id = ?),
			updated_at = ?
		WHERE id = ?`,
		clusterID, clusterID, utcNow(), clusterID,
	)
	if err != nil {
		return nil, fmt.Errorf("recompute cluster stats: %w", err)
	}
	return s.GetCluster(ctx, clusterID)
}

// SetClusterTrend stores the latest trend classification.
func (s *Store) SetClusterTrend(ctx context.Context, clusterID int64, trend string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clusters SET trend = ?, updated_at = ? WHERE id = ?`, trend, utcNow(), clusterID)
	if err != nil {
		return fmt.Errorf("set cluster trend: %w", err)
	}
	return nil
}

// MarkClusterPosted flags that a draft was generated for the cluster.
func (s *Store) MarkClusterPosted(ctx context.Context, clusterID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clusters SET post_generated = 1, updated_at = ? WHERE id = ?`, utcNow(), clusterID)
	if err != nil {
		return fmt.Errorf("mark cluster posted: %w", err)
	}
	return nil
}

// CreateDraft persists a generated post draft.
func (s *Store) CreateDraft(ctx context.Context, d *Draft) (*Draft, error) {
	if d.Status == "" {
		d.Status = "draft"
	}
	now := utcNow()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (cluster_id, title, body, status, with_enrichment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ClusterID, d.Title, d.Body, d.Status, d.WithEnrichment, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	d.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	d.CreatedAt = now
	return d, nil
}

// ListDrafts returns drafts for a cluster, newest first.
func (s *Store) ListDrafts(ctx context.Context, clusterID int64) ([]*Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cluster_id, title, body, status, with_enrichment, created_at
		FROM drafts WHERE cluster_id = ? ORDER BY id DESC`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []*Draft
	for rows.Next() {
		var d Draft
		if err := rows.Scan(&d.ID, &d.ClusterID, &d.Title, &d.Body, &d.Status, &d.WithEnrichment, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
