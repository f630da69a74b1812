// Package testutil provides deterministic genkit doubles for tests: a
// scripted model that answers classification prompts from pattern rules and
// an embedder with controllable vectors. Nothing here touches the network.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockModel returns scripted responses keyed by substrings of the last user
// message. Safe for concurrent use.
type MockModel struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback string
	calls    []ModelCall
}

type mockRule struct {
	pattern  string
	response string
}

// ModelCall records one generation request handled by the mock.
type ModelCall struct {
	UserMessage string
	Response    string
}

// NewMockModel creates a mock whose unmatched requests return fallback.
func NewMockModel(fallback string) *MockModel {
	return &MockModel{fallback: fallback}
}

// Respond registers a case-insensitive substring rule. Rules are checked in
// registration order; first match wins.
func (m *MockModel) Respond(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: response})
}

// Calls returns a copy of the recorded calls.
func (m *MockModel) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ModelCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Register defines the mock as a genkit model named "mock/classifier".
func (m *MockModel) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "mock/classifier", &ai.ModelOptions{
		Label: "Mock Classifier",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *MockModel) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	m.mu.Lock()
	response := m.fallback
	lower := strings.ToLower(userText)
	for _, r := range m.rules {
		if strings.Contains(lower, r.pattern) {
			response = r.response
			break
		}
	}
	m.calls = append(m.calls, ModelCall{UserMessage: userText, Response: response})
	m.mu.Unlock()

	if cb != nil {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(response)},
		})
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(response)},
		},
	}, nil
}
