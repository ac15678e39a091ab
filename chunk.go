package medrag

import (
	"fmt"
	"strings"
)

type Vector []float32

type ChunkID string

func (id ChunkID) String() string {
	return string(id)
}

// Chunk is a fixed, pre-segmented unit of corpus text with a stable
// identifier. Chunks are owned by the external corpus; the pipeline only
// holds read-only references returned by retrieval.
type Chunk struct {
	ID         ChunkID `json:"id"`
	Text       string  `json:"text"`
	Topic      string  `json:"topic"`
	Source     string  `json:"source"`
	SourceType string  `json:"source_type"`
}

func (c Chunk) Sanitize() Chunk {
	c.Text = strings.TrimSpace(c.Text)
	c.Text = strings.Join(strings.Fields(c.Text), " ")
	return c
}

// ScoredChunk is what rankers return: a chunk with its raw relevance score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

type RetrievalMethod string

const (
	MethodDense  RetrievalMethod = "dense"
	MethodSparse RetrievalMethod = "bm25"
	MethodHybrid RetrievalMethod = "hybrid"
)

func ParseRetrievalMethod(s string) (RetrievalMethod, error) {
	switch RetrievalMethod(s) {
	case MethodDense, MethodSparse, MethodHybrid:
		return RetrievalMethod(s), nil
	case "":
		return MethodDense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Candidate is a chunk scored and ranked for one query. Scores from
// different methods are normalised into [0, 1] before they ever reach a
// Candidate. Method records which ranker(s) produced the hit.
type Candidate struct {
	Chunk  Chunk
	Score  float64
	Rank   int
	Method RetrievalMethod
}

// Evidence is the fused, rank-ordered retrieval result for a query.
// Candidates are in strictly non-increasing score order and MaxScore is the
// top candidate's score.
type Evidence struct {
	Candidates []Candidate
	MaxScore   float64
}

func (e Evidence) Empty() bool {
	return len(e.Candidates) == 0
}

func (e Evidence) IDs() map[ChunkID]struct{} {
	ids := make(map[ChunkID]struct{}, len(e.Candidates))
	for _, c := range e.Candidates {
		ids[c.Chunk.ID] = struct{}{}
	}
	return ids
}

func (e Evidence) ChunkByID(id ChunkID) (Chunk, bool) {
	for _, c := range e.Candidates {
		if c.Chunk.ID == id {
			return c.Chunk, true
		}
	}
	return Chunk{}, false
}
