package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// OutcomeRecord is one entry of the audit log of resolved sessions.
type OutcomeRecord struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	ChallengeID string    `json:"challenge_id"`
	Outcome     Outcome   `json:"outcome"`
	CreatedAt   time.Time `json:"created_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// RecordFromSession builds the audit entry for a resolved session.
func RecordFromSession(s *Session, resolvedAt time.Time) OutcomeRecord {
	return OutcomeRecord{
		GroupID:     s.GroupID,
		UserID:      s.UserID,
		UserName:    s.UserName,
		ChallengeID: s.ChallengeID,
		Outcome:     s.Outcome,
		CreatedAt:   s.CreatedAt,
		ResolvedAt:  resolvedAt,
	}
}

// OutcomeFilter configures audit log queries with pagination and filtering.
type OutcomeFilter struct {
	GroupID int64   // Optional; 0 means all groups
	Outcome Outcome // Optional outcome filter
	AfterID int64   // Optional; only entries with a greater id
	Oldest  bool    // Return oldest first instead of newest first
	Limit   int
	Offset  int
}

// DefaultOutcomeFilter returns sensible defaults.
func DefaultOutcomeFilter() OutcomeFilter {
	return OutcomeFilter{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 100, min 1).
func (f *OutcomeFilter) Clamp() {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
