package medrag_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkbase/medrag"
	"github.com/medkbase/medrag/medragtest"
)

var mockNow = time.Date(2026, 5, 14, 9, 30, 0, 0, time.UTC)

var symptomsChunk = medrag.Chunk{
	ID:     "NCI_DIABETES_01",
	Text:   "Common symptoms of diabetes include increased thirst, frequent urination, blurred vision, and fatigue.",
	Topic:  "diabetes",
	Source: "NCI",
}

const groundedAnswer = "Common symptoms of diabetes include increased thirst, frequent urination and fatigue (NCI_DIABETES_01). " +
	medrag.MandatoryDisclaimer

const uncitedAnswer = "Diabetes has many symptoms worth knowing about. " + medrag.MandatoryDisclaimer

type pipelineFixture struct {
	embedder  *medragtest.StubEmbedder
	dense     *medragtest.StubDenseRanker
	keyword   *medragtest.StubKeywordRanker
	generator *medragtest.ScriptedGenerator
	store     *medragtest.MemoryStore
	pipeline  interface {
		Answer(ctx context.Context, question string, method medrag.RetrievalMethod) (*medrag.Result, error)
		Retrieve(ctx context.Context, query string, method medrag.RetrievalMethod, k int) (medrag.Evidence, error)
		ListQueryRecords(ctx context.Context, filter medrag.QueryRecordFilter, params medrag.SortParams) ([]*medrag.QueryRecord, error)
	}
}

func newPipelineFixture(t *testing.T, script ...medragtest.GenerationStep) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		embedder:  &medragtest.StubEmbedder{Vector: medrag.Vector{0.1, 0.2, 0.3}},
		dense:     &medragtest.StubDenseRanker{Results: []medrag.ScoredChunk{{Chunk: symptomsChunk, Score: 0.65}}},
		keyword:   &medragtest.StubKeywordRanker{Results: []medrag.ScoredChunk{{Chunk: symptomsChunk, Score: 4.2}}},
		generator: &medragtest.ScriptedGenerator{Script: script},
		store:     &medragtest.MemoryStore{},
	}

	tokenizer, err := medragtest.Tokenizer()
	require.NoError(t, err)

	m, err := medrag.New(
		f.embedder,
		f.dense,
		f.keyword,
		f.generator,
		tokenizer,
		medrag.WithStore(f.store),
		medrag.WithClock(func() time.Time { return mockNow }),
	)
	require.NoError(t, err)

	f.pipeline = m
	return f
}

func TestAnswer_GroundedFirstAttempt(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, medragtest.GenerationStep{Text: groundedAnswer})

	result, err := f.pipeline.Answer(context.Background(), "What are the symptoms of diabetes?", medrag.MethodDense)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.ValidationPassed)
	assert.Equal(t, groundedAnswer, result.Answer)
	assert.Equal(t, []medrag.ChunkID{"NCI_DIABETES_01"}, result.Citations)
	assert.Equal(t, medrag.ConfidenceHigh, result.Confidence)
	assert.False(t, result.Blocked)
	assert.False(t, result.LowConfidence)
	require.NotNil(t, result.LastAttempt)
	assert.Equal(t, 1, result.LastAttempt.Number)
	assert.Equal(t, 1, f.generator.Calls())

	// The outcome lands in the audit log with the fixed clock's timestamp.
	records := f.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "What are the symptoms of diabetes?", records[0].Question)
	assert.True(t, records[0].Success)
	assert.Equal(t, 1, records[0].Attempts)
	assert.Equal(t, mockNow, records[0].Created)
}

func TestAnswer_SafetyBlocked(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, medragtest.GenerationStep{Text: groundedAnswer})

	result, err := f.pipeline.Answer(context.Background(), "Do I have cancer?", medrag.MethodDense)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Blocked)
	assert.Equal(t, medrag.SafetyCategoryDiagnosis, result.SafetyCategory)
	assert.NotEmpty(t, result.Answer)

	// A blocked query never reaches retrieval or generation.
	assert.Equal(t, 0, f.embedder.Calls())
	assert.Equal(t, 0, f.dense.Calls())
	assert.Equal(t, 0, f.generator.Calls())

	records := f.store.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Blocked)
}

func TestAnswer_LowConfidenceSkipsGeneration(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, medragtest.GenerationStep{Text: groundedAnswer})
	f.dense.Results = []medrag.ScoredChunk{{Chunk: symptomsChunk, Score: 0.12}}

	result, err := f.pipeline.Answer(context.Background(), "What is the prognosis of a rare disease?", medrag.MethodDense)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.LowConfidence)
	assert.Equal(t, medrag.ConfidenceLow, result.Confidence)
	assert.Contains(t, result.Answer, "Could you clarify")
	assert.Contains(t, result.Answer, medrag.Disclaimer)

	// The whole point of the gate: zero generation calls.
	assert.Equal(t, 0, f.generator.Calls())
}

func TestAnswer_RetriesThenPasses(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t,
		medragtest.GenerationStep{Text: uncitedAnswer},
		medragtest.GenerationStep{Text: groundedAnswer},
	)

	result, err := f.pipeline.Answer(context.Background(), "What are the symptoms of diabetes?", medrag.MethodDense)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.ValidationPassed)
	assert.Equal(t, groundedAnswer, result.Answer)
	require.NotNil(t, result.LastAttempt)
	assert.Equal(t, 2, result.LastAttempt.Number)
	assert.Equal(t, 2, f.generator.Calls())
}

func TestAnswer_RetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, medragtest.GenerationStep{Text: uncitedAnswer})

	result, err := f.pipeline.Answer(context.Background(), "What are the symptoms of diabetes?", medrag.MethodDense)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.False(t, result.ValidationPassed)
	assert.Contains(t, result.Err, "validation failed after 3 attempts")

	// Exactly max retries + 1 generation calls, never more.
	assert.Equal(t, 3, f.generator.Calls())

	// The last failing attempt survives so callers can inspect it.
	require.NotNil(t, result.LastAttempt)
	assert.Equal(t, 3, result.LastAttempt.Number)
	assert.Equal(t, uncitedAnswer, result.Answer)
	assert.NotEmpty(t, result.LastAttempt.Report.Errors)

	records := f.store.Records()
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Equal(t, 3, records[0].Attempts)
}

func TestAnswer_TransportFailureCountsAgainstBudget(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t,
		medragtest.GenerationStep{Err: errors.New("upstream unavailable")},
		medragtest.GenerationStep{Text: groundedAnswer},
	)

	result, err := f.pipeline.Answer(context.Background(), "What are the symptoms of diabetes?", medrag.MethodDense)
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotNil(t, result.LastAttempt)
	assert.Equal(t, 2, result.LastAttempt.Number)
	assert.Equal(t, 2, f.generator.Calls())
}

func TestAnswer_CancelledContextAborts(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, medragtest.GenerationStep{Err: context.Canceled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Answer(ctx, "What are the symptoms of diabetes?", medrag.MethodDense)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Cancellation is not a retryable failure.
	assert.Equal(t, 1, f.generator.Calls())
}

func TestAnswer_Deterministic(t *testing.T) {
	t.Parallel()

	question := "What are the symptoms of diabetes?"

	first := newPipelineFixture(t, medragtest.GenerationStep{Text: groundedAnswer})
	second := newPipelineFixture(t, medragtest.GenerationStep{Text: groundedAnswer})

	a, err := first.pipeline.Answer(context.Background(), question, medrag.MethodHybrid)
	require.NoError(t, err)
	b, err := second.pipeline.Answer(context.Background(), question, medrag.MethodHybrid)
	require.NoError(t, err)

	assert.Equal(t, a.Answer, b.Answer)
	assert.Equal(t, a.Citations, b.Citations)
	assert.Equal(t, a.Evidence, b.Evidence)
	assert.Equal(t, a.Confidence, b.Confidence)
}

func TestRetrieve_HybridToleratesSingleBranchFailure(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.dense.Err = errors.New("vector store down")

	evidence, err := f.pipeline.Retrieve(context.Background(), "diabetes symptoms", medrag.MethodHybrid, 6)
	require.NoError(t, err)

	require.Len(t, evidence.Candidates, 1)
	assert.Equal(t, medrag.ChunkID("NCI_DIABETES_01"), evidence.Candidates[0].Chunk.ID)
	assert.Equal(t, medrag.MethodSparse, evidence.Candidates[0].Method)
}

func TestRetrieve_HybridFailsWhenBothBranchesFail(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.dense.Err = errors.New("vector store down")
	f.keyword.Err = errors.New("index down")

	_, err := f.pipeline.Retrieve(context.Background(), "diabetes symptoms", medrag.MethodHybrid, 6)
	assert.ErrorIs(t, err, medrag.ErrRetrievalFailed)
}

func TestRetrieve_UnknownMethod(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)

	_, err := f.pipeline.Retrieve(context.Background(), "diabetes symptoms", medrag.RetrievalMethod("semantic"), 6)
	assert.ErrorIs(t, err, medrag.ErrUnknownMethod)
}
