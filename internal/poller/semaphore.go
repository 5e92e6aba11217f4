package poller

import "context"

// Semaphore bounds how many updates are handled at once.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity.
// If n <= 0, returns nil (unlimited concurrency).
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		return nil
	}
	return &Semaphore{ch: make(chan struct{}, n)}
}

// Acquire blocks until a slot is available or ctx is done, and reports
// whether a slot was taken. A nil semaphore always succeeds.
func (s *Semaphore) Acquire(ctx context.Context) bool {
	if s == nil {
		return true
	}
	select {
	case s.ch <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Release frees a slot taken by Acquire.
func (s *Semaphore) Release() {
	if s == nil {
		return
	}
	<-s.ch
}

// InFlight returns the number of slots currently held.
func (s *Semaphore) InFlight() int {
	if s == nil {
		return 0
	}
	return len(s.ch)
}
