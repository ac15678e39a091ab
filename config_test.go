package medrag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Valid())

	tt := []struct {
		name   string
		modify func(*Config)
	}{
		{"uncertainty threshold too low", func(c *Config) { c.UncertaintyThreshold = 0.05 }},
		{"uncertainty threshold too high", func(c *Config) { c.UncertaintyThreshold = 0.6 }},
		{"keyword overlap too low", func(c *Config) { c.MinKeywordOverlap = 0.01 }},
		{"keyword overlap too high", func(c *Config) { c.MinKeywordOverlap = 0.7 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"too many retries", func(c *Config) { c.MaxRetries = 6 }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }},
		{"fusion alpha above one", func(c *Config) { c.FusionAlpha = 1.1 }},
		{"zero single method weight", func(c *Config) { c.SingleMethodWeight = 0 }},
		{"zero branch timeout", func(c *Config) { c.BranchTimeout = 0 }},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			config := DefaultConfig()
			tc.modify(&config)
			assert.ErrorIs(t, config.Valid(), ErrInvalidConfig)
		})
	}
}

func TestConfigValid_Boundaries(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.UncertaintyThreshold = 0.1
	config.MinKeywordOverlap = 0.5
	config.MaxRetries = 0
	config.FusionAlpha = 0
	config.SingleMethodWeight = 1
	config.BranchTimeout = time.Millisecond
	assert.NoError(t, config.Valid())

	config.UncertaintyThreshold = 0.5
	config.MinKeywordOverlap = 0.1
	config.MaxRetries = 5
	config.FusionAlpha = 1
	assert.NoError(t, config.Valid())
}
