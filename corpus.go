package medrag

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// LoadCorpus reads a pre-chunked corpus in JSONL form, one chunk object per
// line. Chunking itself happens upstream; this is only the interface
// boundary to the ingestion side.
func LoadCorpus(r io.Reader) ([]Chunk, error) {
	var (
		chunks  []Chunk
		scanner = bufio.NewScanner(r)
		seen    = map[ChunkID]struct{}{}
		line    int
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var chunk Chunk
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", line, err)
		}
		if chunk.ID == "" {
			return nil, fmt.Errorf("corpus line %d: missing chunk id", line)
		}
		if _, ok := seen[chunk.ID]; ok {
			return nil, fmt.Errorf("corpus line %d: duplicate chunk id %s", line, chunk.ID)
		}
		seen[chunk.ID] = struct{}{}

		chunks = append(chunks, chunk.Sanitize())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	return chunks, nil
}

const indexBatchSize = 100

// IndexCorpus embeds chunks and saves them into both rankers so dense and
// keyword retrieval operate over the same evidence set.
func (m *medRAG) IndexCorpus(ctx context.Context, chunks []Chunk) error {
	for start := 0; start < len(chunks); start += indexBatchSize {
		batch := chunks[start:min(start+indexBatchSize, len(chunks))]

		vectors, err := m.embedder.EmbedChunks(ctx, batch)
		if err != nil {
			return fmt.Errorf("embedding corpus batch at %d: %w", start, err)
		}

		if err := m.dense.SaveChunks(ctx, batch, vectors); err != nil {
			return fmt.Errorf("saving corpus batch to dense ranker: %w", err)
		}
		if err := m.keyword.SaveChunks(ctx, batch); err != nil {
			return fmt.Errorf("saving corpus batch to keyword ranker: %w", err)
		}
	}

	m.logger.Sugar().With("chunks", len(chunks)).Info("indexed corpus")
	return nil
}
