package runner

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyRunning is returned immediately when a run is requested for a
// program that already has one in flight. Callers never queue behind it.
var ErrAlreadyRunning = errors.New("runner: program run already in progress")

// LockTable hands out at most one run slot per program.
type LockTable struct {
	mu     sync.Mutex
	active map[int64]bool
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{active: make(map[int64]bool)}
}

// Acquire claims the run slot for programID. The returned release function
// must be called exactly once, normally via defer.
func (l *LockTable) Acquire(programID int64) (release func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[programID] {
		return nil, fmt.Errorf("%w: program %d", ErrAlreadyRunning, programID)
	}
	l.active[programID] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, programID)
			l.mu.Unlock()
		})
	}, nil
}

// Running reports whether a run is in flight for the program.
func (l *LockTable) Running(programID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[programID]
}
