package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// IndexVersion tags the on-disk layout. Bump it whenever the chunk or
// vector encoding changes; stale indexes are silently rebuilt, never
// migrated.
const IndexVersion = 1

const (
	metadataFile = "metadata.json"
	indexFile    = "index.json"
)

type indexMetadata struct {
	Version   int       `json:"version"`
	Embedder  string    `json:"embedder"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

type indexEntry struct {
	Chunk
	Vector []float32 `json:"vector"`
}

func saveIndex(dir, embedderName string, idx *index) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	entries := make([]indexEntry, len(idx.chunks))
	for i, c := range idx.chunks {
		entries[i] = indexEntry{Chunk: c, Vector: idx.vectors[i]}
	}
	if err := writeJSON(filepath.Join(dir, indexFile), entries); err != nil {
		return err
	}

	meta := indexMetadata{
		Version:   IndexVersion,
		Embedder:  embedderName,
		Chunks:    len(idx.chunks),
		CreatedAt: time.Now().UTC(),
	}
	return writeJSON(filepath.Join(dir, metadataFile), meta)
}

func loadIndex(dir, embedderName string) (*index, error) {
	raw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta indexMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", metadataFile, err)
	}
	if meta.Version != IndexVersion {
		return nil, fmt.Errorf("index version %d, want %d", meta.Version, IndexVersion)
	}
	if meta.Embedder != embedderName {
		return nil, fmt.Errorf("index embedded with %q, want %q", meta.Embedder, embedderName)
	}

	raw, err = os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, err
	}
	var entries []indexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", indexFile, err)
	}
	if len(entries) != meta.Chunks {
		return nil, fmt.Errorf("index has %d entries, metadata says %d", len(entries), meta.Chunks)
	}

	idx := &index{
		chunks:  make([]Chunk, len(entries)),
		vectors: make([][]float32, len(entries)),
	}
	for i, e := range entries {
		idx.chunks[i] = e.Chunk
		idx.vectors[i] = e.Vector
	}
	return idx, nil
}

// writeJSON writes atomically via a temp file so a crash mid-write never
// leaves a truncated index behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
