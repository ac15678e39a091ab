package googlegenai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/medkbase/medrag"
)

// Generate invokes the generative model with the assembled prompt. The answer
// comes back as plain text; citation markers and the closing disclaimer are
// requested by the prompt itself and verified by the caller, so no response
// schema is imposed here.
func (a *Adapter) Generate(ctx context.Context, prompt medrag.Prompt, params medrag.GenerationParams) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(params.Temperature)),
		MaxOutputTokens:   int32(params.MaxTokens),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: nil, // Disables thinking
		},
	}

	resp, err := a.client.Models.GenerateContent(
		ctx,
		a.generativeModel,
		genai.Text(prompt.User),
		config,
	)
	if err != nil {
		return "", fmt.Errorf("calling generative model: %v", err)
	}
	if len(resp.Candidates) != 1 {
		return "", fmt.Errorf("got %v candidates, expected 1", len(resp.Candidates))
	}

	a.logger.Sugar().With(
		"model", a.generativeModel,
		"length", len(resp.Text()),
	).Debug("genai response")

	return resp.Text(), nil
}
