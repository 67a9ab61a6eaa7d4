package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnsureOwner inserts the owner if missing and returns the stored record.
// An expired paid tier is normalized back to free on read.
func (s *Store) EnsureOwner(ctx context.Context, id int64, username string) (*Owner, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO owners (id, username, tier, created_at) VALUES (?, ?, 'free', ?)`,
		id, username, utcNow())
	if err != nil {
		return nil, fmt.Errorf("ensure owner: %w", err)
	}
	return s.GetOwner(ctx, id)
}

// GetOwner loads an owner, normalizing an expired paid tier to free.
func (s *Store) GetOwner(ctx context.Context, id int64) (*Owner, error) {
	var o Owner
	var expires sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, tier, tier_expires_at, created_at FROM owners WHERE id = ?`, id,
	).Scan(&o.ID, &o.Username, &o.Tier, &expires, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	if expires.Valid {
		t := expires.Time
		o.TierExpiresAt = &t
	}

	if o.Tier == TierPaid && o.TierExpiresAt != nil && !o.TierExpiresAt.After(utcNow()) {
		o.Tier = TierFree
		o.TierExpiresAt = nil
		if _, err := s.db.ExecContext(ctx,
			`UPDATE owners SET tier = 'free', tier_expires_at = NULL WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("normalize owner tier: %w", err)
		}
	}
	return &o, nil
}

// SetOwnerTier updates the subscription tier; expiresAt is nil for free.
func (s *Store) SetOwnerTier(ctx context.Context, id int64, tier string, expiresAt *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE owners SET tier = ?, tier_expires_at = ? WHERE id = ?`, tier, expiresAt, id)
	if err != nil {
		return fmt.Errorf("set owner tier: %w", err)
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

// countLeadsTouchedSince counts lead rows created or updated since the
// cutoff across all of the owner's programs. This is the weekly
// qualification usage a free tier is budgeted against.
func (s *Store) countLeadsTouchedSince(ctx context.Context, ownerID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leads l
		JOIN programs p ON p.id = l.program_id
		WHERE p.owner_id = ? AND l.updated_at >= ?`, ownerID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count quota usage: %w", err)
	}
	return n, nil
}

// checkQuota returns ErrQuotaExceeded when a free-tier owner has used up the
// weekly budget. Paid owners and a zero quota pass unconditionally.
func (s *Store) checkQuota(ctx context.Context, ownerID int64) error {
	if s.WeeklyFreeQuota <= 0 {
		return nil
	}
	owner, err := s.GetOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner.Tier == TierPaid {
		return nil
	}
	used, err := s.countLeadsTouchedSince(ctx, ownerID, utcNow().Add(-7*24*time.Hour))
	if err != nil {
		return err
	}
	if used >= s.WeeklyFreeQuota {
		return fmt.Errorf("%w: owner %d used %d of %d this week", ErrQuotaExceeded, ownerID, used, s.WeeklyFreeQuota)
	}
	return nil
}
