package server

import (
	"encoding/json"
	"net/http"
)

const schedulerSecretHeader = "X-Scheduler-Secret"

// handleRemindersRun triggers today's reminder batch. The caller is an
// external scheduler authenticated by a dedicated secret, never the gateway.
func (s *Server) handleRemindersRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Scheduler.Secret == "" || r.Header.Get(schedulerSecretHeader) != s.cfg.Scheduler.Secret {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := s.runner.RunToday(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "reminder batch failed", "error", err)
		http.Error(w, "batch failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
