package server

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	GoVersion       string `json:"go_version"`
	Uptime          string `json:"uptime"`
	Delivery        string `json:"delivery"`
	PendingSessions int    `json:"pending_sessions"`
	ArmedTimers     int    `json:"armed_timers"`
	Store           string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	stats := s.admission.Stats()

	resp := healthResponse{
		Status:          "healthy",
		Version:         Version,
		GoVersion:       runtime.Version(),
		Uptime:          time.Since(s.startTime).Round(time.Second).String(),
		Delivery:        "poll",
		PendingSessions: stats.PendingSessions,
		ArmedTimers:     stats.ArmedTimers,
		Store:           "disabled",
	}
	if s.webhookPath != "" {
		resp.Delivery = "webhook"
	}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("store ping failed", "error", err)
			resp.Store = "unavailable"
			resp.Status = "degraded"
		} else {
			resp.Store = "ok"
		}
	}
	respondOK(w, reqID, resp)
}
