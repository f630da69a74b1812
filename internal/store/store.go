// Package store provides the account data store backing the assistant's
// tool operations.
//
// The Store interface is the trust boundary the tool executor talks to: it is
// injected at wiring time and owned by the host process, never a package-level
// singleton. The in-memory implementation is the prototype backend, seeded
// from an embedded JSON fixture.
package store

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Card status values.
const (
	CardActive  = "active"
	CardBlocked = "blocked"
)

// ErrUserNotFound indicates the user ID does not match any account record.
var ErrUserNotFound = errors.New("user not found")

// Transaction is a single card transaction.
type Transaction struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Account is the full account record for one user.
type Account struct {
	UserID          string        `json:"user_id"`
	Balance         float64       `json:"balance"`
	CreditLimit     float64       `json:"credit_limit"`
	AvailableCredit float64       `json:"available_credit"`
	DueDate         string        `json:"due_date"`
	MinimumDue      float64       `json:"minimum_due"`
	CardStatus      string        `json:"card_status"`
	RewardPoints    int           `json:"reward_points"`
	Transactions    []Transaction `json:"transactions"`
}

// Store defines the account operations the tool executor needs.
// Implementations must be safe for concurrent use: the store is process-wide
// and shared read-mostly across sessions.
type Store interface {
	// Account returns a copy of the account record for userID.
	Account(userID string) (Account, error)

	// Transactions returns up to n most recent transactions for userID.
	Transactions(userID string, n int) ([]Transaction, error)

	// SetCardStatus updates the card status for userID.
	SetCardStatus(userID, status string) error
}

//go:embed accounts.json
var defaultAccounts []byte

// Memory is an in-memory Store seeded from a JSON fixture.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemory creates a Memory store from the embedded default fixture.
func NewMemory() (*Memory, error) {
	return NewMemoryFromJSON(defaultAccounts)
}

// NewMemoryFromJSON creates a Memory store from a JSON document holding a
// list of account records.
func NewMemoryFromJSON(data []byte) (*Memory, error) {
	var fixture struct {
		Accounts []Account `json:"accounts"`
	}
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parsing account fixture: %w", err)
	}

	accounts := make(map[string]*Account, len(fixture.Accounts))
	for i := range fixture.Accounts {
		acct := fixture.Accounts[i]
		accounts[acct.UserID] = &acct
	}

	return &Memory{accounts: accounts}, nil
}

// Account returns a copy of the account record for userID.
func (m *Memory) Account(userID string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	// Copy, including the transaction slice, so callers cannot mutate
	// shared state.
	cp := *acct
	cp.Transactions = make([]Transaction, len(acct.Transactions))
	copy(cp.Transactions, acct.Transactions)
	return cp, nil
}

// Transactions returns up to n most recent transactions for userID.
// The fixture stores transactions newest-first.
func (m *Memory) Transactions(userID string, n int) ([]Transaction, error) {
	acct, err := m.Account(userID)
	if err != nil {
		return nil, err
	}

	if n <= 0 || n > len(acct.Transactions) {
		n = len(acct.Transactions)
	}
	return acct.Transactions[:n], nil
}

// SetCardStatus updates the card status for userID.
func (m *Memory) SetCardStatus(userID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	acct.CardStatus = status
	return nil
}
