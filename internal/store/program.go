package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateProgram inserts a program and its source chats, returning the stored
// record with its assigned ID.
func (s *Store) CreateProgram(ctx context.Context, p *Program) (*Program, error) {
	now := utcNow()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO programs (owner_id, name, niche, safety_mode, min_score, max_leads_per_run, schedule_time, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OwnerID, p.Name, p.Niche, p.SafetyMode, p.MinScore, p.MaxLeadsPerRun, p.ScheduleTime, p.Enabled, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for _, chat := range p.Chats {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO program_chats (program_id, chat_id) VALUES (?, ?)`, id, chat); err != nil {
			return nil, fmt.Errorf("create program chat: %w", err)
		}
	}
	return s.GetProgram(ctx, id)
}

// GetProgram loads a program with its source chats.
func (s *Store) GetProgram(ctx context.Context, id int64) (*Program, error) {
	var p Program
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, niche, safety_mode, min_score, max_leads_per_run, schedule_time, enabled, created_at, updated_at
		FROM programs WHERE id = ?`, id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Niche, &p.SafetyMode, &p.MinScore, &p.MaxLeadsPerRun, &p.ScheduleTime, &p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM program_chats WHERE program_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get program chats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var chat string
		if err := rows.Scan(&chat); err != nil {
			return nil, err
		}
		p.Chats = append(p.Chats, chat)
	}
	return &p, rows.Err()
}

// ListPrograms returns all programs; when enabledOnly is set, disabled
// programs are filtered out.
func (s *Store) ListPrograms(ctx context.Context, enabledOnly bool) ([]*Program, error) {
	query := `SELECT id FROM programs ORDER BY id`
	if enabledOnly {
		query = `SELECT id FROM programs WHERE enabled = 1 ORDER BY id`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Program, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProgram(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SetProgramEnabled flips the enabled flag. A run in flight observes the
// change before dispatching its next candidate.
func (s *Store) SetProgramEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE programs SET enabled = ?, updated_at = ? WHERE id = ?`, enabled, utcNow(), id)
	if err != nil {
		return fmt.Errorf("set program enabled: %w", err)
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

// ProgramEnabled reports the current enabled flag without loading the full
// record. Used as the cooperative cancellation check between candidates.
func (s *Store) ProgramEnabled(ctx context.Context, id int64) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, `SELECT enabled FROM programs WHERE id = ?`, id).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("program enabled: %w", err)
	}
	return enabled, nil
}
