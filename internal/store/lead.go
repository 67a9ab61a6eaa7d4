package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

// LeadUpsert carries one qualification outcome into the lead store.
type LeadUpsert struct {
	UserID    string
	Username  string
	Score     int
	Reasoning string
}

// leadDedupHash hashes the identifying fields of a lead.
func leadDedupHash(programID int64, userID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", programID, userID)))
	return hex.EncodeToString(sum[:])
}

// GetLead loads the lead for (program, user), or ErrNotFound.
func (s *Store) GetLead(ctx context.Context, programID int64, userID string) (*Lead, error) {
	var l Lead
	var qualifiedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, program_id, user_id, username, score, status, reasoning, dedup_hash, qualified_at, created_at, updated_at
		FROM leads WHERE program_id = ? AND user_id = ?`, programID, userID,
	).Scan(&l.ID, &l.ProgramID, &l.UserID, &l.Username, &l.Score, &l.Status, &l.Reasoning, &l.DedupHash, &qualifiedAt, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	if qualifiedAt.Valid {
		t := qualifiedAt.Time
		l.QualifiedAt = &t
	}
	return &l, nil
}

// UpsertLead creates or refreshes the lead for (program, candidate user).
//
// A new lead becomes qualified when score >= program.MinScore, rejected
// otherwise. On update, score, reasoning, status, and updated_at are
// refreshed; qualified_at is set on the first qualifying pass and preserved
// afterwards. A lead that has been qualified is never reverted below
// qualified by a later low score.
//
// Enforces the owner's weekly quota (ErrQuotaExceeded) before touching the
// row. A constraint violation from a concurrent duplicate insert is retried
// once with a fresh read, then surfaces as ErrConflict.
func (s *Store) UpsertLead(ctx context.Context, program *Program, up LeadUpsert) (*Lead, bool, error) {
	if up.UserID == "" {
		return nil, false, fmt.Errorf("upsert lead: empty user id")
	}
	if err := s.checkQuota(ctx, program.OwnerID); err != nil {
		return nil, false, err
	}

	lead, created, err := s.upsertLeadOnce(ctx, program, up)
	if isConstraintErr(err) {
		// Concurrent duplicate insert; re-read and retry once.
		lead, created, err = s.upsertLeadOnce(ctx, program, up)
		if isConstraintErr(err) {
			return nil, false, fmt.Errorf("%w: lead (%d, %s)", ErrConflict, program.ID, up.UserID)
		}
	}
	return lead, created, err
}

func (s *Store) upsertLeadOnce(ctx context.Context, program *Program, up LeadUpsert) (*Lead, bool, error) {
	now := utcNow()
	status := LeadStatusRejected
	if up.Score >= program.MinScore {
		status = LeadStatusQualified
	}

	existing, err := s.GetLead(ctx, program.ID, up.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if existing == nil {
		var qualifiedAt any
		if status == LeadStatusQualified {
			qualifiedAt = now
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO leads (program_id, user_id, username, score, status, reasoning, dedup_hash, qualified_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			program.ID, up.UserID, up.Username, up.Score, status, up.Reasoning,
			leadDedupHash(program.ID, up.UserID), qualifiedAt, now, now,
		)
		if err != nil {
			return nil, false, err
		}
		lead, err := s.GetLead(ctx, program.ID, up.UserID)
		return lead, true, err
	}

	// Once qualified, stays qualified; score and reasoning still refresh.
	if existing.Status == LeadStatusQualified && status == LeadStatusRejected {
		status = LeadStatusQualified
	}
	setQualifiedAt := existing.QualifiedAt == nil && status == LeadStatusQualified

	if setQualifiedAt {
		_, err = s.db.ExecContext(ctx, `
			UPDATE leads SET username = ?, score = ?, status = ?, reasoning = ?, qualified_at = ?, updated_at = ?
			WHERE id = ?`,
			up.Username, up.Score, status, up.Reasoning, now, now, existing.ID)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE leads SET username = ?, score = ?, status = ?, reasoning = ?, updated_at = ?
			WHERE id = ?`,
			up.Username, up.Score, status, up.Reasoning, now, existing.ID)
	}
	if err != nil {
		return nil, false, err
	}
	lead, err := s.GetLead(ctx, program.ID, up.UserID)
	return lead, false, err
}

// ListLeads returns all leads for a program, newest update first.
func (s *Store) ListLeads(ctx context.Context, programID int64) ([]*Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_id, user_id, username, score, status, reasoning, dedup_hash, qualified_at, created_at, updated_at
		FROM leads WHERE program_id = ? ORDER BY updated_at DESC, id DESC`, programID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		var l Lead
		var qualifiedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.ProgramID, &l.UserID, &l.Username, &l.Score, &l.Status, &l.Reasoning, &l.DedupHash, &qualifiedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		if qualifiedAt.Valid {
			t := qualifiedAt.Time
			l.QualifiedAt = &t
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
