package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/onecard/assistant/internal/retrieval"
)

// MockEmbedder serves vectors for genkit embedding requests. Unmapped texts
// fall through to the deterministic retrieval mock, so explicit vectors are
// only needed when a test wants exact similarity control.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	inner   retrieval.MockEmbedder
}

// NewMockEmbedder creates an empty MockEmbedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{vectors: make(map[string][]float32)}
}

// SetVector pins an exact vector for one text.
func (e *MockEmbedder) SetVector(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vec
}

// Register defines the mock as a genkit embedder named "mock/embedder".
func (e *MockEmbedder) Register(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/embedder", &ai.EmbedderOptions{
		Label:      "Mock Embedder",
		Dimensions: retrieval.MockDimensions,
	}, e.embed)
}

func (e *MockEmbedder) embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		text := documentText(doc)

		e.mu.Lock()
		vec, pinned := e.vectors[text]
		e.mu.Unlock()

		if !pinned {
			out, err := e.inner.Embed(ctx, []string{text})
			if err != nil {
				return nil, err
			}
			vec = out[0]
		}
		embeddings[i] = &ai.Embedding{Embedding: vec}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
