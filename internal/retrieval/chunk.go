// Package retrieval answers knowledge-base questions: it chunks a markdown
// corpus, embeds the chunks, and serves top-k passages by cosine similarity
// with a lexical fallback so an embedder outage degrades quality rather than
// availability.
package retrieval

import (
	"bufio"
	"fmt"
	"strings"
)

// Chunk is one indexed span of the corpus.
type Chunk struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Source    string `json:"source"`
	StartLine int    `json:"start_line"`
}

// TokenEstimate approximates the token count of a line. Four characters per
// token is the usual rule of thumb for English prose and keeps the chunker
// free of a tokenizer dependency.
func TokenEstimate(line string) int {
	return len(line) / 4
}

// SplitLines chunks text by accumulating non-blank lines until the estimated
// token budget is reached. Each chunk after the first repeats the previous
// chunk's last line, so a sentence cut at a boundary is still retrievable
// from both sides. StartLine is the 1-based line number of the chunk's first
// line in the original text.
func SplitLines(text, source string, maxTokens int) []Chunk {
	if maxTokens <= 0 {
		maxTokens = 300
	}

	var (
		chunks []Chunk
		lines  []string
		starts []int
		tokens int
		fresh  bool // buffer holds lines beyond the carried overlap
	)

	flush := func() {
		chunks = append(chunks, Chunk{
			ID:        fmt.Sprintf("%s#%d", source, len(chunks)),
			Text:      strings.Join(lines, "\n"),
			Source:    source,
			StartLine: starts[0],
		})
		// One-line overlap into the next chunk.
		last, lastStart := lines[len(lines)-1], starts[len(starts)-1]
		lines = []string{last}
		starts = []int{lastStart}
		tokens = TokenEstimate(last)
		fresh = false
	}

	lineNo := 0
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(lines) > 0 && tokens+TokenEstimate(line) > maxTokens {
			flush()
		}
		lines = append(lines, line)
		starts = append(starts, lineNo)
		tokens += TokenEstimate(line)
		fresh = true
	}

	if fresh {
		flush()
	}
	return chunks
}
