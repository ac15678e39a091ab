package hugot

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot/pipelines"

	"github.com/medkbase/medrag"
)

// Generate runs the local text generation pipeline. Sampling parameters are
// fixed at pipeline construction time with hugot, so params is accepted for
// interface compatibility but not applied per call.
func (a *Adapter) Generate(ctx context.Context, prompt medrag.Prompt, params medrag.GenerationParams) (string, error) {
	if a.generative == nil {
		return "", fmt.Errorf("generative model not configured")
	}

	batchResult, err := a.generative.RunWithTemplate([][]pipelines.Message{
		{
			{Role: "user", Content: prompt.System + "\n\n" + prompt.User},
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling generative model: %v", err)
	}
	if len(batchResult.GetOutput()) != 1 {
		return "", fmt.Errorf("expected a single generation result")
	}

	result, ok := batchResult.GetOutput()[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected generation result type")
	}

	return strings.TrimSpace(result), nil
}
