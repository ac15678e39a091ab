package medrag

import (
	"fmt"
	"time"
)

// Config holds every tunable of the answer pipeline. It is read once at
// process start, validated, and never mutated afterwards.
type Config struct {
	// UncertaintyThreshold is the minimum top retrieval score required to
	// invoke generation at all.
	UncertaintyThreshold float64
	// MinKeywordOverlap is the minimum keyword overlap ratio between a
	// sentence and at least one of its cited chunks.
	MinKeywordOverlap float64
	// MaxRetries bounds regeneration after a failed validation, so the
	// generator is called at most MaxRetries+1 times per query.
	MaxRetries int
	// TopK is the number of evidence chunks passed to the generator.
	TopK int
	// Temperature and MaxTokens are fixed sampling parameters for every
	// generation call.
	Temperature float64
	MaxTokens   int
	// FusionAlpha is the keyword ranker's weight in hybrid fusion; the dense
	// ranker gets 1-FusionAlpha.
	FusionAlpha float64
	// SingleMethodWeight down-weights hybrid candidates returned by only one
	// ranker. 1 means no penalty.
	SingleMethodWeight float64
	// BranchTimeout applies to each ranker call individually, not to the
	// pipeline as a whole.
	BranchTimeout time.Duration

	EnableCitationChecking    bool
	EnableUncertaintyHandling bool
}

func DefaultConfig() Config {
	return Config{
		UncertaintyThreshold:      0.25,
		MinKeywordOverlap:         0.3,
		MaxRetries:                2,
		TopK:                      6,
		Temperature:               0.1,
		MaxTokens:                 600,
		FusionAlpha:               0.5,
		SingleMethodWeight:        1.0,
		BranchTimeout:             10 * time.Second,
		EnableCitationChecking:    true,
		EnableUncertaintyHandling: true,
	}
}

func (c Config) Valid() error {
	if c.UncertaintyThreshold < 0.1 || c.UncertaintyThreshold > 0.5 {
		return fmt.Errorf("%w: uncertainty threshold %v outside [0.1, 0.5]", ErrInvalidConfig, c.UncertaintyThreshold)
	}
	if c.MinKeywordOverlap < 0.1 || c.MinKeywordOverlap > 0.5 {
		return fmt.Errorf("%w: min keyword overlap %v outside [0.1, 0.5]", ErrInvalidConfig, c.MinKeywordOverlap)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 5 {
		return fmt.Errorf("%w: max retries %d outside [0, 5]", ErrInvalidConfig, c.MaxRetries)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: top k must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v outside [0, 2]", ErrInvalidConfig, c.Temperature)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidConfig, c.MaxTokens)
	}
	if c.FusionAlpha < 0 || c.FusionAlpha > 1 {
		return fmt.Errorf("%w: fusion alpha %v outside [0, 1]", ErrInvalidConfig, c.FusionAlpha)
	}
	if c.SingleMethodWeight <= 0 || c.SingleMethodWeight > 1 {
		return fmt.Errorf("%w: single method weight %v outside (0, 1]", ErrInvalidConfig, c.SingleMethodWeight)
	}
	if c.BranchTimeout <= 0 {
		return fmt.Errorf("%w: branch timeout must be positive, got %v", ErrInvalidConfig, c.BranchTimeout)
	}
	return nil
}
