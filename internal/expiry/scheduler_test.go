package expiry

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/joinguard/pkg/model"
)

func testScheduler() *Scheduler {
	return NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestArm_Fires(t *testing.T) {
	s := testScheduler()
	key := model.SessionKey{GroupID: 1, UserID: 2}

	type call struct {
		key model.SessionKey
		id  string
		at  time.Time
	}
	got := make(chan call, 1)
	start := time.Now()
	h := s.Arm(key, "c1", 20*time.Millisecond, func(k model.SessionKey, id string) {
		got <- call{k, id, time.Now()}
	})

	select {
	case c := <-got:
		if c.key != key || c.id != "c1" {
			t.Errorf("callback args = %v, %q", c.key, c.id)
		}
		if c.at.Sub(start) < 20*time.Millisecond {
			t.Errorf("fired after %v, want >= 20ms", c.at.Sub(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
	}

	if !h.Fired() {
		t.Error("Fired() = false after callback")
	}
	if h.Cancel() {
		t.Error("Cancel after fire reported true")
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
}

func TestCancel_PreventsFire(t *testing.T) {
	s := testScheduler()
	var fired atomic.Bool
	h := s.Arm(model.SessionKey{GroupID: 1, UserID: 1}, "c", 30*time.Millisecond, func(model.SessionKey, string) {
		fired.Store(true)
	})
	if s.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", s.Pending())
	}

	if !h.Cancel() {
		t.Fatal("first Cancel reported false")
	}
	if h.Cancel() {
		t.Fatal("second Cancel reported true")
	}
	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Error("callback ran after successful cancel")
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
}

// TestCancelRace arms zero-delay deadlines and cancels them concurrently. For
// every handle exactly one of {callback ran, Cancel returned true} must hold.
func TestCancelRace(t *testing.T) {
	s := testScheduler()
	const n = 500

	var fires atomic.Int32
	var cancels atomic.Int32
	var wg sync.WaitGroup
	ran := make([]atomic.Int32, n)

	for i := 0; i < n; i++ {
		h := s.Arm(model.SessionKey{GroupID: 1, UserID: int64(i)}, "c", 0, func(model.SessionKey, string) {
			ran[i].Add(1)
			fires.Add(1)
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.Cancel() {
				cancels.Add(1)
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for fires.Load()+cancels.Load() < n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if total := fires.Load() + cancels.Load(); total != n {
		t.Fatalf("fires(%d) + cancels(%d) = %d, want %d", fires.Load(), cancels.Load(), total, n)
	}
	for i := range ran {
		if c := ran[i].Load(); c > 1 {
			t.Fatalf("handle %d fired %d times", i, c)
		}
	}
}

func TestStopAll(t *testing.T) {
	s := testScheduler()
	var fired atomic.Int32
	for i := 0; i < 5; i++ {
		s.Arm(model.SessionKey{GroupID: 1, UserID: int64(i)}, "c", time.Hour, func(model.SessionKey, string) {
			fired.Add(1)
		})
	}
	if got := s.StopAll(); got != 5 {
		t.Errorf("StopAll = %d, want 5", got)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
	if s.StopAll() != 0 {
		t.Error("second StopAll stopped something")
	}
	if fired.Load() != 0 {
		t.Errorf("fired = %d, want 0", fired.Load())
	}
}
