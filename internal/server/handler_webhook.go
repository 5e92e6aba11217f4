package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/me/joinguard/internal/telegram"
)

// secretHeader carries the secret_token given to setWebhook.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleWebhook decodes one update and runs it through the controller before
// answering. Every decodable update is acknowledged with 200 so Telegram
// never redelivers it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret != "" && !secretEqual(r.Header.Get(secretHeader), s.webhookSecret) {
		s.logger.Warn("webhook request with bad secret", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var u telegram.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&u); err != nil {
		s.logger.Warn("undecodable update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !telegram.Route(r.Context(), u, s.admission, s.logger) {
		s.logger.Debug("update skipped", "update_id", u.UpdateID)
	}
	w.WriteHeader(http.StatusOK)
}
