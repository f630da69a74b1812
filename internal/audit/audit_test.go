package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/onecard/assistant/internal/log"
)

func TestFileLoggerAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit_log.jsonl")
	l := NewFileLogger(path, log.NewNop())

	verified := true
	attempts := 1
	events := []Event{
		{UserID: "u1", Action: "block_card", Status: StatusSuccess, OTPVerified: &verified, OTPAttempts: &attempts},
		{UserID: "u1", Action: "dispute_transaction", Status: StatusCancelled, Reason: ReasonUserDeclined},
	}

	for _, ev := range events {
		if err := l.Append(ev); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var got []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		got = append(got, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning audit log: %v", err)
	}

	if len(got) != len(events) {
		t.Fatalf("audit log has %d records, want %d", len(got), len(events))
	}

	if got[0].Action != "block_card" || got[0].Status != StatusSuccess {
		t.Errorf("first record = %+v, want block_card/success", got[0])
	}
	if got[0].OTPVerified == nil || !*got[0].OTPVerified {
		t.Error("first record missing otp_verified=true")
	}
	if got[0].Timestamp.IsZero() {
		t.Error("Append() did not stamp a zero timestamp")
	}
	if got[1].Reason != ReasonUserDeclined {
		t.Errorf("second record reason = %q, want %q", got[1].Reason, ReasonUserDeclined)
	}
}

func TestFileLoggerKeepsExplicitTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit_log.jsonl")
	l := NewFileLogger(path, log.NewNop())

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := l.Append(Event{Timestamp: ts, UserID: "u1", Action: "block_card", Status: StatusCancelled}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !ev.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", ev.Timestamp, ts)
	}
}

func TestFileLoggerConcurrentAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit_log.jsonl")
	l := NewFileLogger(path, log.NewNop())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Append(Event{UserID: "u1", Action: "block_card", Status: StatusCancelled})
		}()
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("interleaved write corrupted line: %v", err)
		}
		count++
	}
	if count != n {
		t.Errorf("audit log has %d records, want %d", count, n)
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Append(Event{Action: "block_card"}); err != nil {
		t.Errorf("Nop.Append() error = %v, want nil", err)
	}
}
