// Package server exposes the Telegram webhook endpoint and the admin API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/joinguard/internal/admission"
	"github.com/me/joinguard/internal/store"
	"github.com/me/joinguard/internal/telegram"
	"github.com/me/joinguard/pkg/model"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// maxUpdateBytes caps the size of a webhook request body.
const maxUpdateBytes = 1 << 20

// Admission is the controller the server feeds and reports on.
type Admission interface {
	telegram.EventHandler
	Sessions() []model.Session
	Stats() admission.Stats
}

// Server is the joinguard HTTP server.
type Server struct {
	router        chi.Router
	logger        *slog.Logger
	startTime     time.Time
	admission     Admission
	store         store.Store // optional; nil when the audit log is disabled
	webhookPath   string      // empty when updates arrive by polling
	webhookSecret string
	adminToken    string

	streamInterval time.Duration // audit log poll interval of the outcome stream
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore enables the outcome endpoints backed by st.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithWebhook serves Telegram updates on path. A non-empty secret must match
// the X-Telegram-Bot-Api-Secret-Token header of every request.
func WithWebhook(path, secret string) Option {
	return func(s *Server) {
		s.webhookPath = path
		s.webhookSecret = secret
	}
}

// WithAdminToken requires "Authorization: Bearer <token>" on /api/v1.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// New creates a new Server with all routes registered.
func New(adm Admission, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		startTime: time.Now(),
		admission: adm,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	if s.webhookPath != "" {
		r.Post(s.webhookPath, s.handleWebhook)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(adminAuthMiddleware(s.adminToken))

		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/outcomes", s.handleListOutcomes)
		r.Get("/outcomes/summary", s.handleOutcomeSummary)
		r.Get("/outcomes/stream", s.handleOutcomeStream)
	})
}
