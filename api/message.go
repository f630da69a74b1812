package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/orchestrator"
	"github.com/onecard/assistant/internal/session"
)

// MaxMessageLength bounds one turn's user message.
const MaxMessageLength = 4096

// MessageHandler serves the turn endpoints. All three routes run the same
// turn engine under the session's turn lock; /v1/actions/confirm and
// /v1/actions/otp only shape the message for structured clients.
type MessageHandler struct {
	sessions *session.MemoryStore
	engine   *orchestrator.Orchestrator
	logger   log.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(sessions *session.MemoryStore, engine *orchestrator.Orchestrator, logger log.Logger) *MessageHandler {
	return &MessageHandler{sessions: sessions, engine: engine, logger: logger}
}

// RegisterRoutes registers turn routes on the mux.
func (h *MessageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/messages", h.message)
	mux.HandleFunc("POST /v1/actions/confirm", h.confirm)
	mux.HandleFunc("POST /v1/actions/otp", h.otp)
}

// MessageRequest is the body of POST /v1/messages.
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ConfirmRequest is the body of POST /v1/actions/confirm.
type ConfirmRequest struct {
	SessionID string `json:"session_id"`
	Confirm   bool   `json:"confirm"`
}

// OTPRequest is the body of POST /v1/actions/otp.
type OTPRequest struct {
	SessionID string `json:"session_id"`
	OTP       string `json:"otp"`
}

// TurnResponse is the body returned by all turn endpoints.
type TurnResponse struct {
	SessionID    string         `json:"session_id"`
	ResponseText string         `json:"response_text"`
	ToolResult   any            `json:"tool_output,omitempty"`
	Debug        map[string]any `json:"debug_info,omitempty"`
}

func (h *MessageHandler) message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if req.Message == "" || len(req.Message) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required and at most 4096 characters")
		return
	}
	h.runTurn(w, r, req.SessionID, req.Message)
}

func (h *MessageHandler) confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	// The turn engine only accepts a literal YES; anything else cancels.
	message := "no"
	if req.Confirm {
		message = "yes"
	}
	h.runTurn(w, r, req.SessionID, message)
}

func (h *MessageHandler) otp(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if req.OTP == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "otp is required")
		return
	}
	h.runTurn(w, r, req.SessionID, req.OTP)
}

// runTurn resolves the session and executes one turn under its lock.
func (h *MessageHandler) runTurn(w http.ResponseWriter, r *http.Request, sessionID, message string) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id must be a UUID")
		return
	}

	var result orchestrator.TurnResult
	err = h.sessions.WithSession(id, func(sess *session.Session) error {
		result = h.engine.HandleTurn(r.Context(), sess.UserID, message, &sess.State)
		return nil
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("turn failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "turn failed")
		return
	}

	resp := TurnResponse{
		SessionID:    id.String(),
		ResponseText: result.ResponseText,
		Debug:        result.Debug,
	}
	if result.ToolResult != nil {
		resp.ToolResult = result.ToolResult
	}
	writeJSON(w, http.StatusOK, resp)
}
