package api

import (
	"net/http"

	"github.com/onecard/assistant/internal/session"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	sessions *session.MemoryStore
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(sessions *session.MemoryStore) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// RegisterRoutes registers health routes on the mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.healthz)
}

func (h *HealthHandler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.sessions.Count(),
	})
}
