// Package session provides conversational session state and an in-memory
// session store.
//
// The orchestrator owns no state of its own: everything a conversation needs
// to resume (a pending action, an OTP wait) lives in State, which belongs to
// the session record. The store is the serialization point required by the
// turn engine — it guarantees at most one in-flight turn per session via a
// per-session lock.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound indicates the requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// PendingAction is a classified action awaiting confirmation or OTP.
type PendingAction struct {
	ActionType  string         `json:"action_type"`
	RequiresOTP bool           `json:"requires_otp"`
	OTPAttempts int            `json:"otp_attempts"`
	Arguments   map[string]any `json:"arguments,omitempty"`
}

// State is the per-session conversational state mutated by the turn engine.
//
// Invariants (enforced by the orchestrator, checkable via Consistent):
//   - AwaitingOTP implies PendingAction != nil and PendingAction.RequiresOTP.
//   - PendingAction and AwaitingOTP are cleared together on terminal outcomes.
type State struct {
	PendingAction *PendingAction `json:"pending_action,omitempty"`
	AwaitingOTP   bool           `json:"awaiting_otp"`
}

// Clear resets the state to idle. PendingAction and AwaitingOTP always clear
// together; partial clears would leave the state machine stuck.
func (s *State) Clear() {
	s.PendingAction = nil
	s.AwaitingOTP = false
}

// Consistent reports whether the state satisfies its invariants.
func (s *State) Consistent() bool {
	if s.AwaitingOTP {
		return s.PendingAction != nil && s.PendingAction.RequiresOTP
	}
	return true
}

// Session is one conversation with one user.
type Session struct {
	ID         uuid.UUID `json:"session_id"`
	UserID     string    `json:"user_id"`
	ClientType string    `json:"client_type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	State      State     `json:"state"`
}

// entry pairs a session with its turn lock.
type entry struct {
	mu   sync.Mutex
	sess Session
}

// MemoryStore is an in-memory session store.
//
// Each session carries its own lock; WithSession holds it for the duration of
// one turn so that two requests racing on the same pending action are
// serialized here rather than inside the turn engine.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*entry)}
}

// Create registers a new session for userID and returns a copy of it.
func (s *MemoryStore) Create(userID, clientType string) Session {
	now := time.Now().UTC()
	sess := Session{
		ID:         uuid.New(),
		UserID:     userID,
		ClientType: clientType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{sess: sess}
	s.mu.Unlock()

	return sess
}

// Get returns a copy of the session with the given ID.
func (s *MemoryStore) Get(id uuid.UUID) (Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess, nil
}

// WithSession runs fn with exclusive access to the session. The per-session
// lock is held for the whole call, giving at-most-one-concurrent-turn
// semantics. Mutations fn makes to the session are persisted when fn returns
// nil; on error the session is left as fn left it (state mutations made by a
// completed turn stay — the turn engine keeps its state internally consistent
// even on failure paths).
func (s *MemoryStore) WithSession(id uuid.UUID, fn func(sess *Session) error) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := fn(&e.sess)
	e.sess.UpdatedAt = time.Now().UTC()
	return err
}

// Count returns the number of sessions in the store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
