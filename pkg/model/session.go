package model

import (
	"fmt"
	"time"
)

// SessionKey identifies the single pending challenge a user may have in a group.
type SessionKey struct {
	GroupID int64 `json:"group_id"`
	UserID  int64 `json:"user_id"`
}

// String renders the key as "group/user" for logs.
func (k SessionKey) String() string {
	return fmt.Sprintf("%d/%d", k.GroupID, k.UserID)
}

// Canceler cancels an armed deferred action. Cancel reports whether this call
// stopped the action before it started.
type Canceler interface {
	Cancel() bool
}

// Session tracks one pending verification from issuance to terminal outcome.
type Session struct {
	GroupID      int64     `json:"group_id"`
	UserID       int64     `json:"user_id"`
	UserName     string    `json:"user_name,omitempty"`
	ChallengeID  string    `json:"challenge_id"`
	CorrectToken string    `json:"-"`
	MessageID    int64     `json:"message_id,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	CreatedAt    time.Time `json:"created_at"`

	// Timer is the armed expiry timer. It is owned by the session and is nil
	// until the challenge message has been delivered.
	Timer Canceler `json:"-"`
}

// NewSession creates a PENDING session for the user from a generated challenge.
func NewSession(groupID, userID int64, userName string, ch Challenge) *Session {
	return &Session{
		GroupID:      groupID,
		UserID:       userID,
		UserName:     userName,
		ChallengeID:  ch.ID,
		CorrectToken: ch.Correct,
		Outcome:      OutcomePending,
		CreatedAt:    time.Now().UTC(),
	}
}

// Key returns the registry key of the session.
func (s *Session) Key() SessionKey {
	return SessionKey{GroupID: s.GroupID, UserID: s.UserID}
}

// IsPending reports whether the session has not been resolved yet.
func (s *Session) IsPending() bool {
	return s.Outcome == OutcomePending
}

// Resolve moves the session to a terminal outcome. A second call fails with
// InvalidTransitionError and leaves the first outcome in place.
func (s *Session) Resolve(next Outcome) error {
	if !s.Outcome.CanTransitionTo(next) {
		return &InvalidTransitionError{
			Entity: "Session",
			ID:     s.ChallengeID,
			From:   s.Outcome.String(),
			To:     next.String(),
		}
	}
	s.Outcome = next
	return nil
}

// CancelTimer stops the expiry timer if one is attached.
func (s *Session) CancelTimer() bool {
	if s.Timer == nil {
		return false
	}
	return s.Timer.Cancel()
}

// Age returns how long the session has been open.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
