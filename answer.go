package medrag

import (
	"context"
	"fmt"
)

// Result is the terminal artifact of one query. Constructed once per
// request and never mutated after return; the caller always receives a
// well-formed Result for every outcome short of a collaborator failure.
type Result struct {
	Success          bool
	Answer           string
	Citations        []ChunkID
	ValidationPassed bool
	LowConfidence    bool
	Blocked          bool
	SafetyCategory   SafetyCategory
	Confidence       ConfidenceLevel
	Evidence         Evidence
	LastAttempt      *GenerationAttempt
	Err              string
}

// Retry orchestrator states. From attempting, a passing validation moves to
// passed; a failing one either stays attempting (budget left) or moves to
// exhausted. Both passed and exhausted are terminal.
type retryState int

const (
	stateAttempting retryState = iota
	statePassed
	stateExhausted
)

// Answer runs the full pipeline for one question: safety gate, retrieval
// fusion, confidence gate, then the bounded generate/validate loop. Retries
// re-use the same prompt; attempts are strictly sequential.
func (m *medRAG) Answer(ctx context.Context, question string, method RetrievalMethod) (*Result, error) {
	verdict := ClassifyQuery(question)
	if !verdict.Allowed {
		m.logger.Sugar().With("category", verdict.Category).Info("query blocked by safety gate")
		result := &Result{
			Success:        true,
			Answer:         verdict.Refusal,
			Blocked:        true,
			SafetyCategory: verdict.Category,
		}
		m.recordQuery(ctx, question, method, result)
		return result, nil
	}

	evidence, err := m.Retrieve(ctx, question, method, m.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieving evidence: %w", err)
	}

	m.logger.Sugar().With(
		"method", method,
		"candidates", len(evidence.Candidates),
		"max score", evidence.MaxScore,
	).Info("retrieved evidence")

	if m.config.EnableUncertaintyHandling {
		if decision := gate(evidence, m.config.UncertaintyThreshold); !decision.Proceed {
			m.logger.Sugar().With(
				"max score", evidence.MaxScore,
				"threshold", m.config.UncertaintyThreshold,
			).Info("low retrieval confidence, returning fallback")
			result := &Result{
				Success:       true,
				Answer:        decision.Fallback,
				LowConfidence: true,
				Confidence:    ConfidenceLow,
				Evidence:      evidence,
			}
			m.recordQuery(ctx, question, method, result)
			return result, nil
		}
	}

	var (
		prompt = BuildPrompt(question, evidence)
		params = GenerationParams{
			Temperature: m.config.Temperature,
			MaxTokens:   m.config.MaxTokens,
		}

		state   = stateAttempting
		attempt GenerationAttempt
		number  = 1
	)

	for state == stateAttempting {
		raw, err := m.generator.Generate(ctx, prompt, params)

		var report ValidationReport
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("generation aborted: %w", ctx.Err())
			}
			// A transport failure is retried like any validation failure
			// and counts against the same budget.
			m.logger.Sugar().With("attempt", number, "error", err).Warn("generation call failed")
			report = ValidationReport{
				Errors: []string{fmt.Sprintf("generation failed: %v", err)},
			}
			raw = ""
		} else {
			report = m.Validate(raw, evidence)
		}

		attempt = GenerationAttempt{
			Number:        number,
			RawText:       raw,
			Citations:     extractCitations(raw),
			HasDisclaimer: !report.MissingDisclaimer,
			Report:        report,
		}

		switch {
		case report.Passed:
			state = statePassed
		case number <= m.config.MaxRetries:
			m.logger.Sugar().With("attempt", number, "errors", report.Errors).Info("validation failed, retrying")
			number++
		default:
			state = stateExhausted
		}
	}

	result := &Result{
		Evidence:    evidence,
		Confidence:  confidenceFor(evidence.MaxScore, m.config.UncertaintyThreshold),
		LastAttempt: &attempt,
		Citations:   attempt.Citations,
	}

	switch state {
	case statePassed:
		result.Success = true
		result.Answer = attempt.RawText
		result.ValidationPassed = true
	case stateExhausted:
		// Surface the last attempt rather than discarding it, so callers
		// can see what kept failing.
		result.Answer = attempt.RawText
		result.Err = fmt.Sprintf("validation failed after %d attempts: %v", attempt.Number, attempt.Report.Errors)
		m.logger.Sugar().With("attempts", attempt.Number, "errors", attempt.Report.Errors).Warn("retry budget exhausted")
	}

	m.recordQuery(ctx, question, method, result)
	return result, nil
}

// recordQuery appends the outcome to the audit log. Persistence problems
// are logged, never allowed to fail an otherwise answered query.
func (m *medRAG) recordQuery(ctx context.Context, question string, method RetrievalMethod, result *Result) {
	if m.store == nil {
		return
	}

	record := &QueryRecord{
		ID:               NewQueryID(),
		Question:         question,
		Method:           method,
		Answer:           result.Answer,
		Success:          result.Success,
		ValidationPassed: result.ValidationPassed,
		LowConfidence:    result.LowConfidence,
		Blocked:          result.Blocked,
		Created:          m.now(),
	}
	if result.LastAttempt != nil {
		record.Attempts = result.LastAttempt.Number
	}

	if err := m.store.SaveQueryRecords(ctx, record); err != nil {
		m.logger.Sugar().With("error", err).Error("saving query record")
	}
}
