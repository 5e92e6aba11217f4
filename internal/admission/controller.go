// Package admission implements the state machine that admits new group
// members: every join opens a challenge session, and the first of a matching
// answer or the expiry deadline collapses it to exactly one terminal outcome.
package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/joinguard/internal/challenge"
	"github.com/me/joinguard/internal/expiry"
	"github.com/me/joinguard/internal/registry"
	"github.com/me/joinguard/pkg/model"
)

// Gateway executes platform actions. Implementations retry rate-limited
// calls themselves; the controller only retries terminal actions once.
type Gateway interface {
	Mute(ctx context.Context, groupID, userID int64) error
	RestoreFullPermissions(ctx context.Context, groupID, userID int64) error
	RemoveTemporarily(ctx context.Context, groupID, userID int64, until time.Time) error
	SendChallenge(ctx context.Context, groupID int64, text string, prompt model.Prompt) (int64, error)
	DeleteMessage(ctx context.Context, groupID, messageID int64) error
	Notify(ctx context.Context, groupID int64, text string) error
	AcknowledgeAnswer(ctx context.Context, callbackID, text string) error
}

// Texts renders the user-facing messages.
type Texts interface {
	Challenge(name, correct string, timeout time.Duration) string
	Verified(name string) string
	Rejected(name string, ban time.Duration) string
	Expired(name string, ban time.Duration) string
	NotYourChallenge(correct string) string
}

// Recorder receives every terminal outcome.
type Recorder interface {
	RecordOutcome(ctx context.Context, rec *model.OutcomeRecord) error
}

// Config holds controller timing.
type Config struct {
	Timeout       time.Duration // How long a joining user has to answer
	BanDuration   time.Duration // How long a failed user stays removed
	ActionTimeout time.Duration // Upper bound for the gateway calls of one event
}

// DefaultConfig returns a 60 second challenge and a 30 minute ban.
func DefaultConfig() Config {
	return Config{
		Timeout:       60 * time.Second,
		BanDuration:   30 * time.Minute,
		ActionTimeout: 3 * time.Minute,
	}
}

// Stats is a point-in-time view of the controller.
type Stats struct {
	PendingSessions int `json:"pending_sessions"`
	ArmedTimers     int `json:"armed_timers"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder hands every terminal outcome to r.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller consumes membership and answer events. It holds no lock of its
// own; all mutual exclusion happens inside the registry.
type Controller struct {
	cfg      Config
	gen      *challenge.Generator
	sessions *registry.Registry
	timers   *expiry.Scheduler
	gateway  Gateway
	texts    Texts
	recorder Recorder
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a controller.
func New(cfg Config, gen *challenge.Generator, gw Gateway, texts Texts, logger *slog.Logger, opts ...Option) *Controller {
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = DefaultConfig().ActionTimeout
	}
	c := &Controller{
		cfg:      cfg,
		gen:      gen,
		sessions: registry.New(),
		timers:   expiry.NewScheduler(logger),
		gateway:  gw,
		texts:    texts,
		now:      time.Now,
		logger:   logger.With("component", "admission"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Sessions returns a copy of the pending sessions.
func (c *Controller) Sessions() []model.Session {
	return c.sessions.Snapshot()
}

// Stats reports pending sessions and armed deadlines.
func (c *Controller) Stats() Stats {
	return Stats{
		PendingSessions: c.sessions.Len(),
		ArmedTimers:     c.timers.Pending(),
	}
}

// Stop cancels every armed deadline. Pending sessions are abandoned; their
// users stay muted.
func (c *Controller) Stop() {
	n := c.timers.StopAll()
	c.logger.Info("controller stopped", "cancelled_timers", n, "abandoned_sessions", c.sessions.Len())
}

// HandleMembership reacts to joins and leaves; other status changes are ignored.
func (c *Controller) HandleMembership(ctx context.Context, ev model.MembershipChanged) {
	switch {
	case ev.IsJoin():
		c.join(ctx, ev)
	case ev.IsLeave():
		c.leave(ctx, ev)
	default:
		c.logger.Debug("membership change ignored",
			"group_id", ev.GroupID, "user_id", ev.UserID,
			"from", ev.PreviousStatus, "to", ev.NewStatus)
	}
}

func (c *Controller) join(ctx context.Context, ev model.MembershipChanged) {
	ctx, cancel := c.detach(ctx)
	defer cancel()

	ch := c.gen.Generate()
	sess := model.NewSession(ev.GroupID, ev.UserID, ev.UserName, ch)
	sess.CreatedAt = c.now().UTC()
	key := sess.Key()
	log := c.logger.With("group_id", ev.GroupID, "user_id", ev.UserID, "challenge_id", ch.ID)

	if !c.sessions.TryCreate(sess) {
		log.Debug("duplicate join dropped")
		return
	}

	if err := c.gateway.Mute(ctx, ev.GroupID, ev.UserID); err != nil {
		c.sessions.TakeIfPending(key, ch.ID)
		log.Warn("mute failed, session released", "error", err)
		return
	}

	// A leave during Mute has already discarded the session.
	if !c.sessions.Attach(key, ch.ID, func(*model.Session) {}) {
		log.Debug("session discarded while muting, challenge not sent")
		return
	}

	text := c.texts.Challenge(ev.UserName, ch.Correct, c.cfg.Timeout)
	prompt := model.Prompt{UserID: ev.UserID, ChallengeID: ch.ID, Options: ch.Options}
	msgID, err := c.gateway.SendChallenge(ctx, ev.GroupID, text, prompt)
	if err != nil {
		c.sessions.TakeIfPending(key, ch.ID)
		log.Error("challenge not delivered, user left muted", "error", err)
		return
	}

	// Whoever took the session before this point saw no message id, so the
	// message is deleted here.
	if !c.sessions.Attach(key, ch.ID, func(s *model.Session) { s.MessageID = msgID }) {
		log.Debug("session resolved before challenge was delivered", "message_id", msgID)
		c.deleteMessage(ctx, log, ev.GroupID, msgID)
		return
	}

	h := c.timers.Arm(key, ch.ID, c.cfg.Timeout, c.expire)
	if !c.sessions.Attach(key, ch.ID, func(s *model.Session) { s.Timer = h }) {
		h.Cancel()
		log.Debug("session resolved before deadline was attached")
		return
	}

	log.Info("challenge issued", "message_id", msgID, "timeout", c.cfg.Timeout)
}

func (c *Controller) leave(ctx context.Context, ev model.MembershipChanged) {
	sess, ok := c.sessions.ForceTake(ev.Key())
	if !ok {
		return
	}
	sess.CancelTimer()

	ctx, cancel := c.detach(ctx)
	defer cancel()

	log := c.logger.With("group_id", sess.GroupID, "user_id", sess.UserID, "challenge_id", sess.ChallengeID)
	c.deleteMessage(ctx, log, sess.GroupID, sess.MessageID)
	log.Info("member left during challenge, session discarded", "status", ev.NewStatus)
}

// HandleAnswer resolves the session an answer belongs to. Presses by anyone
// other than the challenged user, stale challenges and duplicates leave all
// state untouched.
func (c *Controller) HandleAnswer(ctx context.Context, ev model.ChallengeAnswered) {
	ctx, cancel := c.detach(ctx)
	defer cancel()

	log := c.logger.With("group_id", ev.GroupID, "user_id", ev.UserID, "challenge_id", ev.ChallengeID)

	if !ev.FromTarget() {
		log.Debug("foreign answer", "responding_user_id", ev.RespondingUserID)
		c.acknowledge(ctx, log, ev.CallbackID, c.texts.NotYourChallenge(c.gen.Correct()))
		return
	}

	sess, ok := c.sessions.TakeIfPending(ev.Key(), ev.ChallengeID)
	if !ok {
		log.Debug("answer for unknown or resolved session dropped", "message_id", ev.MessageID)
		c.acknowledge(ctx, log, ev.CallbackID, "")
		return
	}
	sess.CancelTimer()
	c.acknowledge(ctx, log, ev.CallbackID, "")

	if ev.SelectedToken == sess.CorrectToken {
		c.resolve(ctx, log, sess, model.OutcomeVerified)
	} else {
		c.resolve(ctx, log, sess, model.OutcomeRejected)
	}
}

// expire is the deadline callback. It runs on a timer goroutine.
func (c *Controller) expire(key model.SessionKey, challengeID string) {
	log := c.logger.With("group_id", key.GroupID, "user_id", key.UserID, "challenge_id", challengeID)

	sess, ok := c.sessions.TakeIfPending(key, challengeID)
	if !ok {
		log.Debug("deadline lost race to answer")
		return
	}

	ctx, cancel := c.detach(context.Background())
	defer cancel()
	c.resolve(ctx, log, sess, model.OutcomeExpired)
}

// resolve applies the terminal action for outcome to a session the caller
// has exclusively taken from the registry. Gateway failures never undo the
// transition.
func (c *Controller) resolve(ctx context.Context, log *slog.Logger, sess *model.Session, outcome model.Outcome) {
	var text string
	switch outcome {
	case model.OutcomeVerified:
		c.retryOnce(ctx, log, "restore permissions", func(ctx context.Context) error {
			return c.gateway.RestoreFullPermissions(ctx, sess.GroupID, sess.UserID)
		})
		text = c.texts.Verified(sess.UserName)
	case model.OutcomeRejected, model.OutcomeExpired:
		until := c.now().Add(c.cfg.BanDuration)
		c.retryOnce(ctx, log, "remove member", func(ctx context.Context) error {
			return c.gateway.RemoveTemporarily(ctx, sess.GroupID, sess.UserID, until)
		})
		if outcome == model.OutcomeRejected {
			text = c.texts.Rejected(sess.UserName, c.cfg.BanDuration)
		} else {
			text = c.texts.Expired(sess.UserName, c.cfg.BanDuration)
		}
	}

	if err := sess.Resolve(outcome); err != nil {
		log.Error("session resolved twice", "error", err)
		return
	}
	resolvedAt := c.now().UTC()

	c.deleteMessage(ctx, log, sess.GroupID, sess.MessageID)
	if err := c.gateway.Notify(ctx, sess.GroupID, text); err != nil {
		log.Warn("outcome notice not sent", "error", err)
	}

	if c.recorder != nil {
		rec := model.RecordFromSession(sess, resolvedAt)
		if err := c.recorder.RecordOutcome(ctx, &rec); err != nil {
			log.Warn("outcome not recorded", "error", err)
		}
	}

	log.Info("session resolved", "outcome", outcome, "elapsed", sess.Age(resolvedAt).Round(time.Millisecond))
}

// retryOnce runs action and, if it fails, runs it a second time.
func (c *Controller) retryOnce(ctx context.Context, log *slog.Logger, what string, action func(context.Context) error) {
	err := action(ctx)
	if err == nil {
		return
	}
	log.Warn(what+" failed, retrying", "error", err)
	if err = action(ctx); err != nil {
		log.Error(what+" failed, operator attention required", "error", err)
	}
}

func (c *Controller) deleteMessage(ctx context.Context, log *slog.Logger, groupID, messageID int64) {
	if messageID == 0 {
		return
	}
	if err := c.gateway.DeleteMessage(ctx, groupID, messageID); err != nil {
		log.Warn("challenge message not deleted", "message_id", messageID, "error", err)
	}
}

func (c *Controller) acknowledge(ctx context.Context, log *slog.Logger, callbackID, text string) {
	if err := c.gateway.AcknowledgeAnswer(ctx, callbackID, text); err != nil {
		log.Debug("answer not acknowledged", "error", err)
	}
}

// detach keeps ctx's values but not its cancellation: once a session has
// been taken its terminal action must run even if the request is gone.
func (c *Controller) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ActionTimeout)
}
