package store

import (
	"context"
	"fmt"
)

// SaveRunReport persists the outcome of one run. report_id is unique so a
// retried save of the same run cannot create a second row.
func (s *Store) SaveRunReport(ctx context.Context, r *RunReport) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO run_reports
			(report_id, program_id, status, started_at, finished_at,
			 candidates_seen, leads_created, leads_updated,
			 qualification_failures, quota_skips, pains_extracted, enrichment_unavailable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ReportID, r.ProgramID, r.Status, r.StartedAt, r.FinishedAt,
		r.CandidatesSeen, r.LeadsCreated, r.LeadsUpdated,
		r.QualificationFailures, r.QuotaSkips, r.PainsExtracted, r.EnrichmentUnavailable,
	)
	if err != nil {
		return fmt.Errorf("save run report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// A duplicate report_id is ignored; LastInsertId would then point at
	// an unrelated earlier row.
	if n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		r.ID = id
	}
	return nil
}

// ListRunReports returns a program's run history, newest first.
func (s *Store) ListRunReports(ctx context.Context, programID int64, limit int) ([]*RunReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, program_id, status, started_at, finished_at,
		       candidates_seen, leads_created, leads_updated,
		       qualification_failures, quota_skips, pains_extracted, enrichment_unavailable
		FROM run_reports WHERE program_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`,
		programID, limit)
	if err != nil {
		return nil, fmt.Errorf("list run reports: %w", err)
	}
	defer rows.Close()

	var out []*RunReport
	for rows.Next() {
		var r RunReport
		if err := rows.Scan(&r.ID, &r.ReportID, &r.ProgramID, &r.Status, &r.StartedAt, &r.FinishedAt,
			&r.CandidatesSeen, &r.LeadsCreated, &r.LeadsUpdated,
			&r.QualificationFailures, &r.QuotaSkips, &r.PainsExtracted, &r.EnrichmentUnavailable); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
