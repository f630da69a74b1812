package retrieval

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/onecard/assistant/internal/log"
)

// PGIndex stores chunks and vectors in PostgreSQL with pgvector, for
// deployments where the corpus outgrows the in-process index or several
// gateway instances must share one index. Schema is managed by the db
// migrations; see the passages table.
//
// PGIndex is safe for concurrent use.
type PGIndex struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   log.Logger
}

// NewPGIndex builds a PGIndex over an existing pool. The pool's lifecycle
// belongs to the caller.
func NewPGIndex(pool *pgxpool.Pool, embedder Embedder, logger log.Logger) *PGIndex {
	return &PGIndex{pool: pool, embedder: embedder, logger: logger}
}

// Replace atomically swaps the stored index for the given chunks: embeds
// them, then deletes and reinserts inside one transaction so readers never
// see a partial corpus.
func (p *PGIndex) Replace(ctx context.Context, chunks []Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM passages WHERE embedder = $1`, p.embedder.Name()); err != nil {
		return fmt.Errorf("clear passages: %w", err)
	}

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(
			`INSERT INTO passages (chunk_id, content, source, start_line, embedder, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.Text, c.Source, c.StartLine, p.embedder.Name(), pgvector.NewVector(vectors[i]),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert passages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	p.logger.Info("passage index replaced", "chunks", len(chunks), "embedder", p.embedder.Name())
	return nil
}

// Search embeds the query and ranks stored passages by cosine similarity,
// dropping results below minScore.
func (p *PGIndex) Search(ctx context.Context, query string, topK int, minScore float64) ([]Passage, error) {
	vecs, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT chunk_id, content, source, start_line, 1 - (embedding <=> $1) AS score
		 FROM passages
		 WHERE embedder = $2 AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(vecs[0]), p.embedder.Name(), minScore, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var ps Passage
		if err := rows.Scan(&ps.ChunkID, &ps.Text, &ps.Source, &ps.LineNo, &ps.Score); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		passages = append(passages, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return passages, nil
}

// Chunks returns every stored chunk for this embedder, in insertion order.
// Serves the lexical fallback, which ranks by term overlap without vectors.
func (p *PGIndex) Chunks(ctx context.Context) ([]Chunk, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT chunk_id, content, source, start_line
		 FROM passages
		 WHERE embedder = $1
		 ORDER BY id`,
		p.embedder.Name(),
	)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.Source, &c.StartLine); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// Count reports stored passages for this embedder.
func (p *PGIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM passages WHERE embedder = $1`, p.embedder.Name(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// PGEngine adapts PGIndex to the same Search/BuildIndex surface as Engine,
// so the turn engine does not care which index variant serves it.
type PGEngine struct {
	idx *PGIndex
	cfg Config

	mu    sync.Mutex
	count int
}

// NewPGEngine builds a PGEngine over an existing PGIndex.
func NewPGEngine(idx *PGIndex, cfg Config) *PGEngine {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &PGEngine{idx: idx, cfg: cfg}
}

// BuildIndex chunks the corpus and replaces the stored index. With rebuild
// false an already-populated index is left untouched.
func (e *PGEngine) BuildIndex(ctx context.Context, rebuild bool) error {
	if !rebuild {
		n, err := e.idx.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			e.setCount(int(n))
			return nil
		}
	}

	raw, err := os.ReadFile(e.cfg.CorpusPath)
	if err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}
	chunks := SplitLines(string(raw), e.cfg.CorpusPath, e.cfg.ChunkSize)
	if len(chunks) == 0 {
		return fmt.Errorf("corpus %s produced no chunks", e.cfg.CorpusPath)
	}
	if err := e.idx.Replace(ctx, chunks); err != nil {
		return err
	}
	e.setCount(len(chunks))
	return nil
}

// Search ranks stored passages for the query, matching the in-process
// engine's contract: a cold index builds on demand, and when no semantic hit
// clears the threshold (or the query embedding fails) the stored chunks are
// ranked lexically instead. topK <= 0 uses the configured default.
func (e *PGEngine) Search(ctx context.Context, query string, topK int) ([]Passage, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	if e.Len() == 0 {
		if err := e.BuildIndex(ctx, false); err != nil {
			return nil, err
		}
	}

	passages, err := e.idx.Search(ctx, query, topK, e.cfg.MinScore)
	if err == nil && len(passages) > 0 {
		return passages, nil
	}

	chunks, cerr := e.idx.Chunks(ctx)
	if cerr != nil {
		if err != nil {
			return nil, err
		}
		return nil, cerr
	}
	return lexicalSearch(chunks, query, topK), nil
}

// Len reports the chunk count of the last build, 0 before any build.
func (e *PGEngine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

func (e *PGEngine) setCount(n int) {
	e.mu.Lock()
	e.count = n
	e.mu.Unlock()
}
