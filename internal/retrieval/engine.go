package retrieval

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/onecard/assistant/internal/log"
)

// Passage is one retrieval hit, ready to be rendered into an answer.
type Passage struct {
	ChunkID  string  `json:"chunk_id"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	LineNo   int     `json:"line_no"`
	Score    float64 `json:"score"`
	Fallback string  `json:"fallback,omitempty"`
}

// FallbackLexical marks passages ranked by term overlap instead of vectors.
const FallbackLexical = "lexical"

// Lexical fallback scoring: a flat floor plus a small bonus per matched
// query term. The ceiling stays well under real cosine scores so callers can
// tell degraded results apart.
const (
	lexicalBase    = 0.1
	lexicalPerTerm = 0.05
)

// Config configures an Engine.
type Config struct {
	CorpusPath string
	IndexDir   string
	ChunkSize  int
	MinScore   float64
	TopK       int
}

// Engine answers queries over a chunked, embedded corpus. The index is built
// lazily on first use and swapped in atomically; Search never observes a
// half-built index.
type Engine struct {
	cfg      Config
	embedder Embedder
	logger   log.Logger

	mu  sync.RWMutex
	idx *index
}

type index struct {
	chunks  []Chunk
	vectors [][]float32
}

// NewEngine builds an Engine. The index is not built until the first Search
// or an explicit BuildIndex call.
func NewEngine(cfg Config, embedder Embedder, logger log.Logger) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Engine{cfg: cfg, embedder: embedder, logger: logger}
}

// BuildIndex chunks and embeds the corpus. With rebuild false, a persisted
// index matching the current embedder and version is reused; with rebuild
// true the corpus is re-embedded unconditionally. Building is idempotent:
// repeated calls over an unchanged corpus produce an identical index.
func (e *Engine) BuildIndex(ctx context.Context, rebuild bool) error {
	if !rebuild && e.cfg.IndexDir != "" {
		if idx, err := loadIndex(e.cfg.IndexDir, e.embedder.Name()); err == nil {
			e.swap(idx)
			e.logger.Info("reusing persisted index", "chunks", len(idx.chunks), "dir", e.cfg.IndexDir)
			return nil
		} else if !os.IsNotExist(err) {
			e.logger.Warn("discarding persisted index", "error", err)
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

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}

	idx := &index{chunks: chunks, vectors: vectors}
	if e.cfg.IndexDir != "" {
		if err := saveIndex(e.cfg.IndexDir, e.embedder.Name(), idx); err != nil {
			e.logger.Warn("index not persisted", "error", err)
		}
	}
	e.swap(idx)
	e.logger.Info("index built", "chunks", len(chunks), "corpus", e.cfg.CorpusPath)
	return nil
}

func (e *Engine) swap(idx *index) {
	e.mu.Lock()
	e.idx = idx
	e.mu.Unlock()
}

func (e *Engine) snapshot() *index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx
}

// Len reports the number of indexed chunks, 0 before the first build.
func (e *Engine) Len() int {
	if idx := e.snapshot(); idx != nil {
		return len(idx.chunks)
	}
	return 0
}

// Search returns up to topK passages for the query, best first. Results
// below the configured minimum score are dropped; when the embedder fails or
// nothing clears the threshold, passages ranked by term overlap are returned
// with the lexical fallback marker instead of an error. topK <= 0 uses the
// configured default.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]Passage, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}

	idx := e.snapshot()
	if idx == nil {
		if err := e.BuildIndex(ctx, false); err != nil {
			return nil, err
		}
		idx = e.snapshot()
	}

	qv, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		e.logger.Warn("query embedding failed, using lexical fallback", "error", err)
		return lexicalSearch(idx.chunks, query, topK), nil
	}

	passages := make([]Passage, 0, len(idx.chunks))
	for i, c := range idx.chunks {
		score := Cosine(qv[0], idx.vectors[i])
		if score < e.cfg.MinScore {
			continue
		}
		passages = append(passages, Passage{
			ChunkID: c.ID,
			Text:    c.Text,
			Source:  c.Source,
			LineNo:  c.StartLine,
			Score:   score,
		})
	}
	if len(passages) == 0 {
		return lexicalSearch(idx.chunks, query, topK), nil
	}

	sort.SliceStable(passages, func(i, j int) bool { return passages[i].Score > passages[j].Score })
	if len(passages) > topK {
		passages = passages[:topK]
	}
	return passages, nil
}

// lexicalSearch ranks chunks by how many distinct query terms they contain.
// Chunks with no overlap are dropped entirely.
func lexicalSearch(chunks []Chunk, query string, topK int) []Passage {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	passages := make([]Passage, 0, topK)
	for _, c := range chunks {
		lower := strings.ToLower(c.Text)
		matched := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		passages = append(passages, Passage{
			ChunkID:  c.ID,
			Text:     c.Text,
			Source:   c.Source,
			LineNo:   c.StartLine,
			Score:    lexicalBase + lexicalPerTerm*float64(matched),
			Fallback: FallbackLexical,
		})
	}
	sort.SliceStable(passages, func(i, j int) bool { return passages[i].Score > passages[j].Score })
	if len(passages) > topK {
		passages = passages[:topK]
	}
	return passages
}

// queryTerms lowercases and splits the query, dropping short stop-ish words
// that would match almost every chunk.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?\"'()")
		if len(f) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
