package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/joinguard/internal/telegram"
	"github.com/me/joinguard/pkg/model"
)

// fakeSource serves batches of updates, then blocks until cancelled.
type fakeSource struct {
	mu         sync.Mutex
	batches    [][]telegram.Update
	errs       []error
	offsets    []int64
	deleted    bool
	deleteErr  error
	dropped    bool
	exhausted  chan struct{}
	closedOnce sync.Once
}

func newFakeSource(batches ...[]telegram.Update) *fakeSource {
	return &fakeSource{batches: batches, exhausted: make(chan struct{})}
}

func (s *fakeSource) DeleteWebhook(_ context.Context, dropPending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
	s.dropped = dropPending
	return s.deleteErr
}

func (s *fakeSource) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]telegram.Update, error) {
	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		s.mu.Unlock()
		return nil, err
	}
	if len(s.batches) > 0 {
		b := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return b, nil
	}
	s.mu.Unlock()
	s.closedOnce.Do(func() { close(s.exhausted) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type countingHandler struct {
	memberships atomic.Int32
	answers     atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (h *countingHandler) track() {
	n := h.inFlight.Add(1)
	for {
		m := h.maxInFlight.Load()
		if n <= m || h.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(h.delay)
	h.inFlight.Add(-1)
}

func (h *countingHandler) HandleMembership(context.Context, model.MembershipChanged) {
	h.track()
	h.memberships.Add(1)
}

func (h *countingHandler) HandleAnswer(context.Context, model.ChallengeAnswered) {
	h.track()
	h.answers.Add(1)
}

func joinUpdate(id int64) telegram.Update {
	chat := telegram.Chat{ID: -100, Type: "supergroup"}
	user := telegram.User{ID: id, FirstName: "u"}
	return telegram.Update{UpdateID: id, ChatMember: &telegram.ChatMemberUpdated{
		Chat:          chat,
		OldChatMember: telegram.ChatMember{Status: "left", User: user},
		NewChatMember: telegram.ChatMember{Status: "member", User: user},
	}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runPoller(t *testing.T, p *Poller, src *fakeSource) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-src.exhausted:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not drain the source")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPoller_DispatchesAndAdvancesOffset(t *testing.T) {
	src := newFakeSource(
		[]telegram.Update{joinUpdate(5), joinUpdate(6)},
		[]telegram.Update{joinUpdate(7), {UpdateID: 8}},
	)
	h := &countingHandler{}
	cfg := DefaultConfig()
	cfg.DropPending = true
	p := New(src, h, cfg, testLogger())

	runPoller(t, p, src)

	if !src.deleted || !src.dropped {
		t.Errorf("webhook deleted=%v dropped=%v, want both", src.deleted, src.dropped)
	}
	if n := h.memberships.Load(); n != 3 {
		t.Errorf("memberships = %d, want 3", n)
	}
	want := []int64{0, 7, 9}
	if len(src.offsets) != len(want) {
		t.Fatalf("offsets = %v, want %v", src.offsets, want)
	}
	for i := range want {
		if src.offsets[i] != want[i] {
			t.Errorf("offsets = %v, want %v", src.offsets, want)
			break
		}
	}
}

func TestPoller_BoundsConcurrency(t *testing.T) {
	var batch []telegram.Update
	for i := int64(1); i <= 12; i++ {
		batch = append(batch, joinUpdate(i))
	}
	src := newFakeSource(batch)
	h := &countingHandler{delay: 10 * time.Millisecond}
	cfg := DefaultConfig()
	cfg.Workers = 3
	p := New(src, h, cfg, testLogger())

	runPoller(t, p, src)

	if n := h.memberships.Load(); n != 12 {
		t.Errorf("memberships = %d, want 12 (Run must wait for in-flight updates)", n)
	}
	if m := h.maxInFlight.Load(); m > 3 {
		t.Errorf("max in flight = %d, want <= 3", m)
	}
}

func TestPoller_BacksOffOnError(t *testing.T) {
	src := newFakeSource([]telegram.Update{joinUpdate(1)})
	src.errs = []error{errors.New("boom"), &telegram.APIError{Method: "getUpdates", Code: 502}}
	h := &countingHandler{}
	cfg := DefaultConfig()
	cfg.MinBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	p := New(src, h, cfg, testLogger())

	runPoller(t, p, src)

	if n := h.memberships.Load(); n != 1 {
		t.Errorf("memberships = %d, want 1", n)
	}
	if len(src.offsets) != 4 {
		t.Errorf("polls = %d, want 4", len(src.offsets))
	}
}

func TestPoller_DeleteWebhookFailure(t *testing.T) {
	src := newFakeSource()
	src.deleteErr = errors.New("unauthorized")
	p := New(src, &countingHandler{}, DefaultConfig(), testLogger())
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(src.offsets) != 0 {
		t.Error("polled despite failed webhook removal")
	}
}
