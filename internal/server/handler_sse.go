package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/me/joinguard/pkg/model"
)

const (
	// defaultStreamInterval is how often the outcome stream polls the audit log.
	defaultStreamInterval = 2 * time.Second
	// streamPageSize is the page size used to catch up on new outcomes.
	streamPageSize = 100
)

// handleOutcomeStream streams newly recorded outcomes via Server-Sent Events.
// GET /api/v1/outcomes/stream?group_id=
func (s *Server) handleOutcomeStream(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondError(w, reqID, http.StatusNotFound, auditDisabled())
		return
	}

	groupID, err := queryInt64(r, "group_id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("group_id must be an integer"))
		return
	}

	// Only outcomes recorded after the client connected are streamed.
	latest, _, err := s.store.ListOutcomes(r.Context(), model.OutcomeFilter{GroupID: groupID, Limit: 1})
	if err != nil {
		s.logger.Error("list outcomes", "error", err)
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: "cannot read audit log"})
		return
	}
	var lastID int64
	if len(latest) > 0 {
		lastID = latest[0].ID
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	if err := sendSSEEvent(w, flusher, "init", map[string]int64{"last_id": lastID}); err != nil {
		return
	}

	interval := s.streamInterval
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			sent, err := s.streamOutcomesAfter(w, r, flusher, groupID, &lastID)
			if err != nil {
				s.logger.Debug("sse stream ended", "error", err)
				return
			}
			if sent == 0 {
				fmt.Fprintf(w, ": heartbeat\n\n")
				flusher.Flush()
			}
		}
	}
}

// streamOutcomesAfter sends every outcome recorded after *lastID, a page at
// a time, advancing *lastID as it goes. Read errors are logged and retried on
// the next tick; write errors end the stream.
func (s *Server) streamOutcomesAfter(w http.ResponseWriter, r *http.Request, flusher http.Flusher, groupID int64, lastID *int64) (int, error) {
	sent := 0
	for {
		recs, _, err := s.store.ListOutcomes(r.Context(), model.OutcomeFilter{
			GroupID: groupID,
			AfterID: *lastID,
			Oldest:  true,
			Limit:   streamPageSize,
		})
		if err != nil {
			s.logger.Error("sse fetch error", "error", err)
			return sent, nil
		}
		for _, rec := range recs {
			if err := sendSSEEvent(w, flusher, "outcome", rec); err != nil {
				return sent, err
			}
			*lastID = rec.ID
			sent++
		}
		if len(recs) < streamPageSize {
			return sent, nil
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
