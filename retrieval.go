package medrag

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Retrieve runs the configured ranker(s) for a query and returns a fused,
// deterministically ordered evidence set of at most k candidates.
func (m *medRAG) Retrieve(ctx context.Context, query string, method RetrievalMethod, k int) (Evidence, error) {
	switch method {
	case MethodDense:
		scored, err := m.searchDense(ctx, query, k)
		if err != nil {
			return Evidence{}, err
		}
		return toEvidence(clampScores(scored), MethodDense), nil
	case MethodSparse:
		scored, err := m.searchKeyword(ctx, query, k)
		if err != nil {
			return Evidence{}, err
		}
		return toEvidence(maxNormalise(scored), MethodSparse), nil
	case MethodHybrid:
		return m.retrieveHybrid(ctx, query, k)
	}
	return Evidence{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

func (m *medRAG) searchDense(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.BranchTimeout)
	defer cancel()

	vector, err := m.embedder.EmbedContent(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query content: %w", err)
	}

	scored, err := m.dense.SearchChunks(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}
	return scored, nil
}

func (m *medRAG) searchKeyword(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.BranchTimeout)
	defer cancel()

	scored, err := m.keyword.SearchChunks(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return scored, nil
}

// retrieveHybrid queries both rankers concurrently, each over-fetching 2k
// candidates so fusion has something to merge. A branch that fails or times
// out contributes an empty list; the query only fails when both branches do.
func (m *medRAG) retrieveHybrid(ctx context.Context, query string, k int) (Evidence, error) {
	var (
		fetchK = 2 * k
		wg     = new(sync.WaitGroup)

		denseScored, sparseScored []ScoredChunk
		denseErr, sparseErr       error
	)

	wg.Go(func() {
		denseScored, denseErr = m.searchDense(ctx, query, fetchK)
	})
	wg.Go(func() {
		sparseScored, sparseErr = m.searchKeyword(ctx, query, fetchK)
	})
	wg.Wait()

	if denseErr != nil && sparseErr != nil {
		return Evidence{}, fmt.Errorf("%w: dense: %v, keyword: %v", ErrRetrievalFailed, denseErr, sparseErr)
	}
	if denseErr != nil {
		m.logger.Sugar().With("error", denseErr).Warn("dense branch failed, fusing keyword results only")
		denseScored = nil
	}
	if sparseErr != nil {
		m.logger.Sugar().With("error", sparseErr).Warn("keyword branch failed, fusing dense results only")
		sparseScored = nil
	}

	fused := fuse(clampScores(denseScored), maxNormalise(sparseScored), m.config.FusionAlpha, m.config.SingleMethodWeight)
	if len(fused) > k {
		fused = fused[:k]
	}

	evidence := Evidence{Candidates: fused}
	for i := range evidence.Candidates {
		evidence.Candidates[i].Rank = i + 1
	}
	if !evidence.Empty() {
		evidence.MaxScore = evidence.Candidates[0].Score
	}
	return evidence, nil
}

// clampScores forces dense similarity scores into [0, 1].
func clampScores(scored []ScoredChunk) []ScoredChunk {
	out := make([]ScoredChunk, len(scored))
	for i, s := range scored {
		if s.Score < 0 {
			s.Score = 0
		}
		if s.Score > 1 {
			s.Score = 1
		}
		out[i] = s
	}
	return out
}

// maxNormalise maps raw keyword scores into [0, 1] by dividing by the
// maximum observed score, avoiding the unit mismatch with dense similarity.
func maxNormalise(scored []ScoredChunk) []ScoredChunk {
	out := make([]ScoredChunk, len(scored))
	var top float64
	for _, s := range scored {
		if s.Score > top {
			top = s.Score
		}
	}
	for i, s := range scored {
		if top > 0 {
			s.Score = s.Score / top
		} else {
			s.Score = 0
		}
		out[i] = s
	}
	return out
}

func toEvidence(scored []ScoredChunk, method RetrievalMethod) Evidence {
	evidence := Evidence{Candidates: make([]Candidate, 0, len(scored))}
	for i, s := range scored {
		evidence.Candidates = append(evidence.Candidates, Candidate{
			Chunk:  s.Chunk,
			Score:  s.Score,
			Rank:   i + 1,
			Method: method,
		})
	}
	if !evidence.Empty() {
		evidence.MaxScore = evidence.Candidates[0].Score
	}
	return evidence
}

type fusedEntry struct {
	chunk     Chunk
	combined  float64
	bestScore float64
	bestRank  int
	method    RetrievalMethod
}

// fuse merges two normalised ranked lists into one. Chunks present in both
// lists get a weighted sum of their scores; single-list chunks keep their
// score, optionally down-weighted. Ordering is fully deterministic: combined
// score desc, best single-method score desc, best single-method rank asc,
// chunk ID asc.
func fuse(dense, sparse []ScoredChunk, alpha, singleMethodWeight float64) []Candidate {
	type hit struct {
		chunk Chunk
		score float64
		rank  int
	}

	denseHits := make(map[ChunkID]hit, len(dense))
	for i, s := range dense {
		denseHits[s.Chunk.ID] = hit{chunk: s.Chunk, score: s.Score, rank: i + 1}
	}
	sparseHits := make(map[ChunkID]hit, len(sparse))
	for i, s := range sparse {
		sparseHits[s.Chunk.ID] = hit{chunk: s.Chunk, score: s.Score, rank: i + 1}
	}

	ids := make([]ChunkID, 0, len(denseHits)+len(sparseHits))
	seen := make(map[ChunkID]struct{}, len(denseHits)+len(sparseHits))
	for _, s := range dense {
		if _, ok := seen[s.Chunk.ID]; !ok {
			seen[s.Chunk.ID] = struct{}{}
			ids = append(ids, s.Chunk.ID)
		}
	}
	for _, s := range sparse {
		if _, ok := seen[s.Chunk.ID]; !ok {
			seen[s.Chunk.ID] = struct{}{}
			ids = append(ids, s.Chunk.ID)
		}
	}

	entries := make([]fusedEntry, 0, len(ids))
	for _, id := range ids {
		var (
			d, inDense  = denseHits[id]
			s, inSparse = sparseHits[id]
			entry       fusedEntry
		)
		switch {
		case inDense && inSparse:
			entry = fusedEntry{
				chunk:     d.chunk,
				combined:  alpha*s.score + (1-alpha)*d.score,
				bestScore: max(d.score, s.score),
				bestRank:  min(d.rank, s.rank),
				method:    MethodHybrid,
			}
		case inDense:
			entry = fusedEntry{
				chunk:     d.chunk,
				combined:  d.score * singleMethodWeight,
				bestScore: d.score,
				bestRank:  d.rank,
				method:    MethodDense,
			}
		default:
			entry = fusedEntry{
				chunk:     s.chunk,
				combined:  s.score * singleMethodWeight,
				bestScore: s.score,
				bestRank:  s.rank,
				method:    MethodSparse,
			}
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].combined != entries[j].combined {
			return entries[i].combined > entries[j].combined
		}
		if entries[i].bestScore != entries[j].bestScore {
			return entries[i].bestScore > entries[j].bestScore
		}
		if entries[i].bestRank != entries[j].bestRank {
			return entries[i].bestRank < entries[j].bestRank
		}
		return entries[i].chunk.ID < entries[j].chunk.ID
	})

	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, Candidate{
			Chunk:  e.chunk,
			Score:  e.combined,
			Method: e.method,
		})
	}
	return candidates
}
