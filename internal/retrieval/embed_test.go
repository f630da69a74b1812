package retrieval

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	var e MockEmbedder
	a, err := e.Embed(context.Background(), []string{"forex markup on international spends"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, err := e.Embed(context.Background(), []string{"forex markup on international spends"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("dimension %d differs between runs: %v vs %v", i, a[0][i], b[0][i])
		}
	}
}

func TestMockEmbedderDimensionsAndNorm(t *testing.T) {
	v := mockVector("what is the interest free period")
	if len(v) != MockDimensions {
		t.Fatalf("len(vector) = %d, want %d", len(v), MockDimensions)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("squared norm = %v, want 1", sum)
	}
}

func TestMockEmbedderTopicalSimilarity(t *testing.T) {
	query := mockVector("what is the forex markup for spends abroad")
	onTopic := mockVector("international transactions carry a foreign currency markup")
	offTopic := mockVector("reward points are earned per category")

	if Cosine(query, onTopic) <= Cosine(query, offTopic) {
		t.Errorf("on-topic similarity %v not greater than off-topic %v",
			Cosine(query, onTopic), Cosine(query, offTopic))
	}
}

func TestMockEmbedderDistinctTexts(t *testing.T) {
	a := mockVector("completely unrelated sentence one")
	b := mockVector("completely unrelated sentence two")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical vectors")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}
