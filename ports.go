package medrag

import (
	"context"
	"database/sql"
)

// Embedder encodes text as vectors for the dense ranker.
type Embedder interface {
	Name() string
	EmbedChunks(ctx context.Context, chunks []Chunk) ([]Vector, error)
	EmbedContent(ctx context.Context, content string) (Vector, error)
}

// DenseRanker stores embedded chunks and ranks them by vector similarity.
// Scores are expected in [0, 1] (cosine certainty); the fusion engine clamps
// anything outside that range.
type DenseRanker interface {
	Name() string
	SaveChunks(ctx context.Context, chunks []Chunk, vectors []Vector) error
	SearchChunks(ctx context.Context, vector Vector, limit int) ([]ScoredChunk, error)
}

// KeywordRanker stores chunks and ranks them by lexical relevance
// (BM25-style). Raw scores are unbounded and get max-normalised by the
// fusion engine.
type KeywordRanker interface {
	Name() string
	SaveChunks(ctx context.Context, chunks []Chunk) error
	SearchChunks(ctx context.Context, query string, limit int) ([]ScoredChunk, error)
}

// Generator produces a text completion for an assembled prompt. A transport
// failure is returned as an error and counts against the retry budget.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt, params GenerationParams) (string, error)
}

type GenerationParams struct {
	Temperature float64
	MaxTokens   int
}

type Store interface {
	Transactional
	QueryStore
}

type Transactional interface {
	Transactional(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error
}

// QueryStore persists the query audit log.
type QueryStore interface {
	SaveQueryRecords(ctx context.Context, records ...*QueryRecord) error
	ListQueryRecords(ctx context.Context, filter QueryRecordFilter, params SortParams) ([]*QueryRecord, error)
}
