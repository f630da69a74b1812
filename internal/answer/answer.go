// Package answer rewrites retrieved knowledge passages into conversational
// replies through the generation backend. It is only wired when natural
// answers are enabled; the default response path stays deterministic.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/onecard/assistant/internal/log"
)

const systemPrompt = `You are a credit-card support assistant.
Answer the user's question using ONLY the reference passage provided.
If the passage does not answer the question, say you don't have that information.
Keep the answer to at most three sentences. Do not invent numbers, fees or policies.`

// Rewriter generates a short grounded answer from a passage.
type Rewriter struct {
	g         *genkit.Genkit
	modelName string
	timeout   time.Duration
	logger    log.Logger
}

// NewRewriter creates a Rewriter bound to a model.
func NewRewriter(g *genkit.Genkit, modelName string, timeout time.Duration, logger log.Logger) *Rewriter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Rewriter{g: g, modelName: modelName, timeout: timeout, logger: logger}
}

// Rewrite answers question from passage. Callers fall back to the raw
// passage on error.
func (r *Rewriter) Rewrite(ctx context.Context, question, passage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, r.g,
		ai.WithModelName(r.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt("Question: %s\n\nReference passage:\n%s", question, passage),
	)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("generation returned empty answer")
	}
	return text, nil
}
