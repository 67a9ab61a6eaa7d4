// Package store is the persistence layer for programs, leads, pains,
// clusters, drafts, and run reports. All pipeline state flows through this
// package; no other component touches the database directly.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrQuotaExceeded is returned by UpsertLead when the owner's weekly
	// qualification quota is exhausted.
	ErrQuotaExceeded = errors.New("store: quota exceeded")
	// ErrConflict is returned when an upsert still hits a constraint
	// violation after one retry with a fresh read.
	ErrConflict = errors.New("store: persistence conflict")
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB

	// WeeklyFreeQuota caps lead upserts per owner per rolling week on the
	// free tier. Zero disables the check.
	WeeklyFreeQuota int
}

// Open opens (creating if needed) the database at dbPath and applies the
// schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle and applies the schema. Used by
// tests with an in-memory database.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// isConstraintErr reports whether err is a SQLite constraint violation.
// The pure-Go driver surfaces these as plain errors, so match on message.
func isConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint") || strings.Contains(msg, "unique")
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
