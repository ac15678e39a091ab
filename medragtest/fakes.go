package medragtest

import (
	"context"
	"database/sql"
	"sync"

	"github.com/medkbase/medrag"
)

// StubEmbedder returns a fixed vector for every input.
type StubEmbedder struct {
	Vector medrag.Vector
	Err    error

	mu    sync.Mutex
	calls int
}

func (e *StubEmbedder) Name() string { return "stub-embedder" }

func (e *StubEmbedder) EmbedChunks(ctx context.Context, chunks []medrag.Chunk) ([]medrag.Vector, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	vectors := make([]medrag.Vector, len(chunks))
	for i := range chunks {
		vectors[i] = e.Vector
	}
	return vectors, nil
}

func (e *StubEmbedder) EmbedContent(ctx context.Context, content string) (medrag.Vector, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Vector, nil
}

func (e *StubEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// StubDenseRanker serves a fixed ranked list regardless of the query vector.
type StubDenseRanker struct {
	Results []medrag.ScoredChunk
	Err     error

	mu    sync.Mutex
	calls int
	saved []medrag.Chunk
}

func (r *StubDenseRanker) Name() string { return "stub-dense" }

func (r *StubDenseRanker) SaveChunks(ctx context.Context, chunks []medrag.Chunk, vectors []medrag.Vector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, chunks...)
	return r.Err
}

func (r *StubDenseRanker) SearchChunks(ctx context.Context, vector medrag.Vector, limit int) ([]medrag.ScoredChunk, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if len(r.Results) > limit {
		return r.Results[:limit], nil
	}
	return r.Results, nil
}

func (r *StubDenseRanker) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *StubDenseRanker) Saved() []medrag.Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved
}

// StubKeywordRanker serves a fixed ranked list regardless of the query text.
type StubKeywordRanker struct {
	Results []medrag.ScoredChunk
	Err     error

	mu    sync.Mutex
	calls int
	saved []medrag.Chunk
}

func (r *StubKeywordRanker) Name() string { return "stub-keyword" }

func (r *StubKeywordRanker) SaveChunks(ctx context.Context, chunks []medrag.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, chunks...)
	return r.Err
}

func (r *StubKeywordRanker) SearchChunks(ctx context.Context, query string, limit int) ([]medrag.ScoredChunk, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if len(r.Results) > limit {
		return r.Results[:limit], nil
	}
	return r.Results, nil
}

func (r *StubKeywordRanker) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *StubKeywordRanker) Saved() []medrag.Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved
}

// GenerationStep is one scripted generator response.
type GenerationStep struct {
	Text string
	Err  error
}

// ScriptedGenerator plays back a fixed sequence of responses, repeating the
// last step once the script runs out. Calls reports how many generation
// calls were made, which is how tests assert the retry budget.
type ScriptedGenerator struct {
	Script []GenerationStep

	mu    sync.Mutex
	calls int
}

func (g *ScriptedGenerator) Name() string { return "scripted-generator" }

func (g *ScriptedGenerator) Generate(ctx context.Context, prompt medrag.Prompt, params medrag.GenerationParams) (string, error) {
	g.mu.Lock()
	step := GenerationStep{}
	if len(g.Script) > 0 {
		step = g.Script[min(g.calls, len(g.Script)-1)]
	}
	g.calls++
	g.mu.Unlock()

	return step.Text, step.Err
}

func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// MemoryStore is an in-memory QueryStore capturing saved audit records.
type MemoryStore struct {
	Err error

	mu      sync.Mutex
	records []*medrag.QueryRecord
}

func (s *MemoryStore) Transactional(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *MemoryStore) SaveQueryRecords(ctx context.Context, records ...*medrag.QueryRecord) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *MemoryStore) ListQueryRecords(ctx context.Context, filter medrag.QueryRecordFilter, params medrag.SortParams) ([]*medrag.QueryRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Records(), nil
}

func (s *MemoryStore) Records() []*medrag.QueryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*medrag.QueryRecord, len(s.records))
	copy(out, s.records)
	return out
}
