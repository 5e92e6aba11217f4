package server

import (
	"net/http"
	"time"
)

type sessionView struct {
	GroupID     int64     `json:"group_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	ChallengeID string    `json:"challenge_id"`
	MessageID   int64     `json:"message_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Age         string    `json:"age"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	now := time.Now()

	sessions := s.admission.Sessions()
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView{
			GroupID:     sess.GroupID,
			UserID:      sess.UserID,
			UserName:    sess.UserName,
			ChallengeID: sess.ChallengeID,
			MessageID:   sess.MessageID,
			CreatedAt:   sess.CreatedAt,
			Age:         sess.Age(now).Round(time.Second).String(),
		})
	}
	respondOK(w, reqID, views)
}
