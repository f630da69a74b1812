package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/session"
)

// Input validation bounds.
const (
	MaxUserIDLength     = 64
	MaxClientTypeLength = 32
)

// SessionHandler serves session creation and inspection.
type SessionHandler struct {
	sessions *session.MemoryStore
	logger   log.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions *session.MemoryStore, logger log.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers session routes on the mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", h.create)
	mux.HandleFunc("GET /v1/sessions/{id}", h.get)
}

// CreateSessionRequest is the body of POST /v1/sessions.
type CreateSessionRequest struct {
	UserID     string `json:"user_id"`
	ClientType string `json:"client_type,omitempty"`
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if req.UserID == "" || len(req.UserID) > MaxUserIDLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required and at most 64 characters")
		return
	}
	if len(req.ClientType) > MaxClientTypeLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "client_type too long")
		return
	}

	sess := h.sessions.Create(req.UserID, req.ClientType)
	h.logger.Info("session created", "session_id", sess.ID, "user_id", sess.UserID)
	writeJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id must be a UUID")
		return
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("session lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "session lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
