package runner

import "context"

// semaphore is a channel-based counting semaphore bounding how many
// qualification calls run at once.
type semaphore struct {
	ch chan struct{}
}

func newSemaphore(cap int) *semaphore {
	if cap <= 0 {
		cap = 1
	}
	return &semaphore{ch: make(chan struct{}, cap)}
}

// acquire blocks until a slot is free or the context is done.
func (s *semaphore) acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release frees a slot. Must only follow a successful acquire.
func (s *semaphore) release() {
	<-s.ch
}
