//go:build integration
// +build integration

package retrieval_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/retrieval"
	"github.com/onecard/assistant/internal/testutil"
)

// Integration tests for the pgvector-backed index against a real
// PostgreSQL instance. Run with: go test -tags=integration ./internal/retrieval/...
//
// The container is started via testcontainers; docker must be available.

const pgTestCorpus = `International transactions carry a forex markup fee on foreign currency spends.
Reward points are earned on every purchase and bonus categories earn extra cashback.
The interest-free period runs from the purchase date until the statement due date.
If your card is lost or stolen you should block it immediately from the app.
`

func TestPGIndexReplaceAndSearch(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	idx := retrieval.NewPGIndex(tdb.Pool, retrieval.MockEmbedder{}, log.NewNop())

	chunks := retrieval.SplitLines(pgTestCorpus, "kb.md", 300)
	require.NotEmpty(t, chunks)
	require.NoError(t, idx.Replace(ctx, chunks))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunks)), n)

	passages, err := idx.Search(ctx, "what is the forex markup on international spends", 3, 0.25)
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.Contains(t, passages[0].Text, "forex markup")
	assert.Equal(t, "kb.md", passages[0].Source)
	assert.GreaterOrEqual(t, passages[0].Score, 0.25)
	for i := 1; i < len(passages); i++ {
		assert.LessOrEqual(t, passages[i].Score, passages[i-1].Score)
	}
}

func TestPGIndexReplaceIsAtomic(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	idx := retrieval.NewPGIndex(tdb.Pool, retrieval.MockEmbedder{}, log.NewNop())

	first := retrieval.SplitLines(pgTestCorpus, "kb.md", 300)
	require.NoError(t, idx.Replace(ctx, first))

	// A second replace must fully supersede the first, not append to it.
	second := retrieval.SplitLines("Disputes resolve within seven working days.\n", "kb.md", 300)
	require.NoError(t, idx.Replace(ctx, second))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(second)), n)
}

func TestPGIndexIsolatedByEmbedder(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	idx := retrieval.NewPGIndex(tdb.Pool, retrieval.MockEmbedder{}, log.NewNop())
	mine := retrieval.SplitLines(pgTestCorpus, "kb.md", 300)
	require.NoError(t, idx.Replace(ctx, mine))

	// Rows written under a different embedder name must be invisible here.
	other := retrieval.NewPGIndex(tdb.Pool, namedEmbedder{retrieval.MockEmbedder{}, "other-model"}, log.NewNop())
	require.NoError(t, other.Replace(ctx, retrieval.SplitLines("Unrelated corpus line about billing.\n", "kb.md", 300)))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(mine)), n)
}

func TestPGEngineBuildIndexSkipsPopulated(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	corpus := filepath.Join(t.TempDir(), "kb.md")
	require.NoError(t, os.WriteFile(corpus, []byte(pgTestCorpus), 0o644))

	idx := retrieval.NewPGIndex(tdb.Pool, retrieval.MockEmbedder{}, log.NewNop())
	eng := retrieval.NewPGEngine(idx, retrieval.Config{
		CorpusPath: corpus,
		ChunkSize:  20,
		MinScore:   0.25,
		TopK:       3,
	})

	require.NoError(t, eng.BuildIndex(ctx, false))
	built := eng.Len()
	require.Greater(t, built, 1)

	// Corpus on disk changes, but without rebuild the stored index wins.
	require.NoError(t, os.WriteFile(corpus, []byte("A single replacement line.\n"), 0o644))
	require.NoError(t, eng.BuildIndex(ctx, false))
	assert.Equal(t, built, eng.Len())

	require.NoError(t, eng.BuildIndex(ctx, true))
	assert.Equal(t, 1, eng.Len())
}

func TestPGEngineSearchBuildsAndFallsBack(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	corpus := filepath.Join(t.TempDir(), "kb.md")
	require.NoError(t, os.WriteFile(corpus, []byte(pgTestCorpus), 0o644))

	idx := retrieval.NewPGIndex(tdb.Pool, retrieval.MockEmbedder{}, log.NewNop())
	eng := retrieval.NewPGEngine(idx, retrieval.Config{
		CorpusPath: corpus,
		ChunkSize:  300,
		MinScore:   0.999, // unreachable, forces the lexical path
		TopK:       3,
	})

	// A cold engine builds from the corpus on its first search.
	passages, err := eng.Search(ctx, "forex markup", 3)
	require.NoError(t, err)
	require.Greater(t, eng.Len(), 0)

	require.NotEmpty(t, passages)
	assert.Equal(t, retrieval.FallbackLexical, passages[0].Fallback)
	assert.InDelta(t, 0.2, passages[0].Score, 1e-9) // base 0.1 + two matched terms
	assert.Contains(t, passages[0].Text, "forex markup")
}

// namedEmbedder overrides the reported embedder name while keeping the
// underlying vectors.
type namedEmbedder struct {
	retrieval.MockEmbedder
	name string
}

func (n namedEmbedder) Name() string { return n.name }
