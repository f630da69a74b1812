package store

import (
	"errors"
	"sync"
	"testing"
)

func TestNewMemory(t *testing.T) {
	m, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	acct, err := m.Account("u1")
	if err != nil {
		t.Fatalf("Account(u1) error = %v", err)
	}
	if acct.CardStatus != CardActive {
		t.Errorf("CardStatus = %q, want %q", acct.CardStatus, CardActive)
	}
	if len(acct.Transactions) == 0 {
		t.Error("Account(u1) has no transactions in fixture")
	}
}

func TestAccountUnknownUser(t *testing.T) {
	m, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	if _, err := m.Account("nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Account(nobody) error = %v, want ErrUserNotFound", err)
	}
}

func TestAccountReturnsCopy(t *testing.T) {
	m, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	acct, err := m.Account("u1")
	if err != nil {
		t.Fatalf("Account(u1) error = %v", err)
	}

	// Mutating the returned copy must not affect the store.
	acct.CardStatus = "mangled"
	acct.Transactions[0].Merchant = "mangled"

	fresh, err := m.Account("u1")
	if err != nil {
		t.Fatalf("Account(u1) second read error = %v", err)
	}
	if fresh.CardStatus == "mangled" {
		t.Error("Account() leaked a reference to shared card status")
	}
	if fresh.Transactions[0].Merchant == "mangled" {
		t.Error("Account() leaked a reference to the shared transaction slice")
	}
}

func TestTransactionsLimit(t *testing.T) {
	m, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"limit below total", 2, 2},
		{"limit above total", 100, 5},
		{"zero means all", 0, 5},
		{"negative means all", -1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := m.Transactions("u1", tt.n)
			if err != nil {
				t.Fatalf("Transactions(u1, %d) error = %v", tt.n, err)
			}
			if len(txs) != tt.want {
				t.Errorf("Transactions(u1, %d) returned %d, want %d", tt.n, len(txs), tt.want)
			}
		})
	}
}

func TestSetCardStatus(t *testing.T) {
	m, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	if err := m.SetCardStatus("u1", CardBlocked); err != nil {
		t.Fatalf("SetCardStatus() error = %v", err)
	}

	acct, err := m.Account("u1")
	if err != nil {
		t.Fatalf("Account(u1) error = %v", err)
	}
	if acct.CardStatus != CardBlocked {
		t.Errorf("CardStatus = %q, want %q", acct.CardStatus, CardBlocked)
	}

	if err := m.SetCardStatus("nobody", CardBlocked); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("SetCardStatus(nobody) error = %v, want ErrUserNotFound", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.Account("u1")
		}()
		go func() {
			defer wg.Done()
			_ = m.SetCardStatus("u1", CardActive)
		}()
	}
	wg.Wait()
}
