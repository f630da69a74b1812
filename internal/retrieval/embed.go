package retrieval

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// Embedder turns texts into vectors. Implementations must be deterministic
// for equal inputs within one index generation; vectors of differing
// dimensions must never be mixed in one index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name identifies the embedding space. An index built under one name is
	// discarded when loaded under another.
	Name() string
}

// GenkitEmbedder adapts an ai.Embedder to the Embedder interface.
type GenkitEmbedder struct {
	embedder ai.Embedder
	name     string
}

// NewGenkitEmbedder wraps a registered genkit embedder. name should be the
// model identifier, e.g. "text-embedding-004".
func NewGenkitEmbedder(embedder ai.Embedder, name string) *GenkitEmbedder {
	return &GenkitEmbedder{embedder: embedder, name: name}
}

func (e *GenkitEmbedder) Name() string { return e.name }

func (e *GenkitEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Embedding
	}
	return out, nil
}

// MockDimensions is the vector size of the deterministic mock embedder.
const MockDimensions = 64

// conceptGroups drive the first dimensions of the mock embedding. A text
// mentioning a group's vocabulary scores on that dimension, so texts about
// the same topic land near each other regardless of exact wording.
var conceptGroups = [][]string{
	{"forex", "markup", "international", "abroad", "foreign"},
	{"reward", "points", "cashback", "earn", "category", "categories"},
	{"interest", "period", "days", "billing", "due"},
	{"block", "lost", "stolen", "freeze"},
}

// MockEmbedder is a deterministic offline embedder for tests and local runs.
// Concept dimensions carry topical signal; the remaining dimensions are
// low-amplitude noise derived from a hash of the text, so distinct texts
// stay distinguishable without any topical meaning leaking in. Vectors are
// L2-normalized.
type MockEmbedder struct{}

func (MockEmbedder) Name() string { return "mock-64" }

func (MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = mockVector(t)
	}
	return out, nil
}

func mockVector(text string) []float32 {
	v := make([]float32, MockDimensions)
	lower := strings.ToLower(text)

	for dim, group := range conceptGroups {
		for _, w := range group {
			if strings.Contains(lower, w) {
				v[dim] = 1
				break
			}
		}
	}

	// Noise in [-0.1, 0.1], streamed from repeated hashing so any number of
	// dimensions stays deterministic.
	digest := sha256.Sum256([]byte(text))
	bi := 0
	for dim := len(conceptGroups); dim < MockDimensions; dim++ {
		if bi == len(digest) {
			digest = sha256.Sum256(digest[:])
			bi = 0
		}
		v[dim] = float32(digest[bi])/255*0.2 - 0.1
		bi++
	}

	normalize(v)
	return v
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}

// Cosine returns the cosine similarity of two equal-length vectors, 0 when
// either has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
