package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	endpoints := []endpointInfo{
		{"/api/v1/health", []string{"GET"}, "Server health, pending sessions and armed timers"},
		{"/api/v1/sessions", []string{"GET"}, "Pending challenge sessions"},
		{"/api/v1/outcomes", []string{"GET"}, "Audit log of resolved sessions. Accepts ?group_id=&outcome=&limit=&offset="},
		{"/api/v1/outcomes/summary", []string{"GET"}, "Outcome counts. Accepts ?group_id="},
		{"/api/v1/outcomes/stream", []string{"GET"}, "Server-Sent Events stream of new outcomes. Accepts ?group_id="},
	}
	if s.webhookPath != "" {
		endpoints = append(endpoints, endpointInfo{s.webhookPath, []string{"POST"}, "Telegram webhook"})
	}
	respondOK(w, reqID, discoveryResponse{
		Name:        "joinguard API",
		Version:     "v1",
		Description: "joinguard admission bot: challenge sessions and outcome audit log",
		Endpoints:   endpoints,
	})
}
