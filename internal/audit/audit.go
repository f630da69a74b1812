// Package audit provides an append-only audit trail for terminal outcomes of
// state-changing actions.
//
// Events are newline-delimited JSON, one record per terminal outcome
// (execution success or cancellation). Records are never mutated after
// writing.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/onecard/assistant/internal/log"
)

// Event statuses.
const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
	StatusFailure   = "failure"
)

// Cancellation reasons.
const (
	ReasonUserDeclined    = "user did not confirm"
	ReasonTooManyAttempts = "too_many_otp_attempts"
)

// Event is a single audit record.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
	Action      string    `json:"action"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	OTPVerified *bool     `json:"otp_verified,omitempty"`
	OTPAttempts *int      `json:"otp_attempts,omitempty"`
}

// Logger appends audit events. Implementations must be safe for concurrent
// use; the orchestrator emits events from whatever goroutine serves the turn.
type Logger interface {
	Append(ev Event) error
}

// FileLogger appends events to a local JSONL file.
type FileLogger struct {
	mu     sync.Mutex
	path   string
	logger log.Logger
}

// NewFileLogger creates a FileLogger writing to path.
func NewFileLogger(path string, logger log.Logger) *FileLogger {
	if logger == nil {
		logger = log.NewNop()
	}
	return &FileLogger{path: path, logger: logger}
}

// Append writes one event as a single JSON line.
func (l *FileLogger) Append(ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}

	l.logger.Debug("audit event appended", "action", ev.Action, "status", ev.Status)
	return nil
}

// Nop discards all events. Used when local auditing is disabled.
type Nop struct{}

// Append implements Logger.
func (Nop) Append(Event) error { return nil }
