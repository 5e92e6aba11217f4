// Package expiry arms one-shot, cancellable deadlines for challenge sessions.
package expiry

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/joinguard/pkg/model"
)

// Func is invoked when a deadline passes without being cancelled.
type Func func(key model.SessionKey, challengeID string)

const (
	stateArmed int32 = iota
	stateFired
	stateCancelled
)

// Handle is the ownership token for one armed deadline.
type Handle struct {
	sched       *Scheduler
	key         model.SessionKey
	challengeID string
	onFire      Func
	state       atomic.Int32
	timer       *time.Timer
}

// Cancel stops the deadline. It reports true only if this call prevented the
// callback; once the callback has started, Cancel is a no-op returning false.
// Cancel is safe to call any number of times from any goroutine.
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(stateArmed, stateCancelled) {
		return false
	}
	h.timer.Stop()
	h.sched.forget(h)
	return true
}

// Fired reports whether the callback has started.
func (h *Handle) Fired() bool {
	return h.state.Load() == stateFired
}

func (h *Handle) fire() {
	if !h.state.CompareAndSwap(stateArmed, stateFired) {
		return
	}
	h.sched.forget(h)
	h.onFire(h.key, h.challengeID)
}

// Scheduler tracks armed deadlines so they can be listed and cancelled at
// shutdown. Callbacks run on their own goroutines.
type Scheduler struct {
	mu     sync.Mutex
	armed  map[*Handle]struct{}
	logger *slog.Logger
}

// NewScheduler creates an idle Scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		armed:  make(map[*Handle]struct{}),
		logger: logger.With("component", "expiry"),
	}
}

// Arm schedules onFire(key, challengeID) to run once, no earlier than delay
// from now, unless the returned handle is cancelled first.
func (s *Scheduler) Arm(key model.SessionKey, challengeID string, delay time.Duration, onFire Func) *Handle {
	h := &Handle{
		sched:       s,
		key:         key,
		challengeID: challengeID,
		onFire:      onFire,
	}
	s.mu.Lock()
	s.armed[h] = struct{}{}
	// Created under the lock so fire's forget cannot run before registration.
	h.timer = time.AfterFunc(delay, h.fire)
	s.mu.Unlock()

	s.logger.Debug("deadline armed", "key", key.String(), "challenge_id", challengeID, "delay", delay)
	return h
}

// Pending returns the number of armed deadlines that have neither fired nor
// been cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

// StopAll cancels every armed deadline and returns how many were stopped.
func (s *Scheduler) StopAll() int {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.armed))
	for h := range s.armed {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	stopped := 0
	for _, h := range handles {
		if h.Cancel() {
			stopped++
		}
	}
	if stopped > 0 {
		s.logger.Info("deadlines cancelled", "count", stopped)
	}
	return stopped
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.armed, h)
	s.mu.Unlock()
}
