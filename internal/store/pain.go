package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// QuoteHash normalizes a quote and hashes it for dedup. Normalization is
// lowercase with collapsed whitespace, so trivial rephrasings of the same
// extraction do not produce duplicate pain rows.
func QuoteHash(quote string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(quote), " "))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// InsertPain records one extracted pain. Returns inserted=false when the
// same (lead, quote) pair already exists; reruns over the same messages are
// a no-op.
func (s *Store) InsertPain(ctx context.Context, p *Pain) (bool, error) {
	if p.QuoteHash == "" {
		p.QuoteHash = QuoteHash(p.Quote)
	}
	if p.Category == "" {
		p.Category = "general"
	}
	if p.ExtractedAt.IsZero() {
		p.ExtractedAt = utcNow()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO pains (lead_id, program_id, category, intensity, quote, quote_hash, cluster_id, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.LeadID, p.ProgramID, p.Category, p.Intensity, p.Quote, p.QuoteHash, p.ClusterID, p.ExtractedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert pain: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	p.ID, err = res.LastInsertId()
	return true, err
}

func scanPains(rows *sql.Rows) ([]*Pain, error) {
	var out []*Pain
	for rows.Next() {
		var p Pain
		var clusterID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.LeadID, &p.ProgramID, &p.Category, &p.Intensity, &p.Quote, &p.QuoteHash, &clusterID, &p.ExtractedAt); err != nil {
			return nil, err
		}
		if clusterID.Valid {
			id := clusterID.Int64
			p.ClusterID = &id
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

const painColumns = `id, lead_id, program_id, category, intensity, quote, quote_hash, cluster_id, extracted_at`

// ListPainsByLead returns a lead's pains in extraction order.
func (s *Store) ListPainsByLead(ctx context.Context, leadID int64) ([]*Pain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+painColumns+` FROM pains WHERE lead_id = ? ORDER BY id`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list pains by lead: %w", err)
	}
	defer rows.Close()
	return scanPains(rows)
}

// ListPainsByCluster returns a cluster's member pains in extraction order.
func (s *Store) ListPainsByCluster(ctx context.Context, clusterID int64) ([]*Pain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+painColumns+` FROM pains WHERE cluster_id = ? ORDER BY id`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("list pains by cluster: %w", err)
	}
	defer rows.Close()
	return scanPains(rows)
}

// UnclusteredPains returns a program's pains not yet assigned to a cluster.
func (s *Store) UnclusteredPains(ctx context.Context, programID int64) ([]*Pain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+painColumns+` FROM pains WHERE program_id = ? AND cluster_id IS NULL ORDER BY id`, programID)
	if err != nil {
		return nil, fmt.Errorf("unclustered pains: %w", err)
	}
	defer rows.Close()
	return scanPains(rows)
}

// AssignPainCluster attaches a pain to a cluster.
func (s *Store) AssignPainCluster(ctx context.Context, painID, clusterID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE pains SET cluster_id = ? WHERE id = ?`, clusterID, painID)
	if err != nil {
		return fmt.Errorf("assign pain cluster: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PainWindowStats returns the count and average intensity of a cluster's
// pains extracted within [since, until). Used by trend detection over
// adjacent time windows.
func (s *Store) PainWindowStats(ctx context.Context, clusterID int64, since, until time.Time) (int, float64, error) {
	var n int
	var avg float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(intensity), 0)
		FROM pains WHERE cluster_id = ? AND extracted_at >= ? AND extracted_at < ?`,
		clusterID, since, until,
	).Scan(&n, &avg)
	if err != nil {
		return 0, 0, fmt.Errorf("pain window stats: %w", err)
	}
	return n, avg, nil
}

// GetPain loads one pain by id.
func (s *Store) GetPain(ctx context.Context, id int64) (*Pain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+painColumns+` FROM pains WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get pain: %w", err)
	}
	defer rows.Close()
	pains, err := scanPains(rows)
	if err != nil {
		return nil, err
	}
	if len(pains) == 0 {
		return nil, ErrNotFound
	}
	return pains[0], nil
}
