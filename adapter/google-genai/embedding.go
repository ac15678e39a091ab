package googlegenai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/medkbase/medrag"
)

func (a *Adapter) EmbedChunks(ctx context.Context, chunks []medrag.Chunk) ([]medrag.Vector, error) {
	// Use the batch embedding API to embed all chunks at once.
	contents := make([]*genai.Content, 0, len(chunks))
	for _, aChunk := range chunks {
		contents = append(contents, genai.NewContentFromText(aChunk.Text, genai.RoleUser))
	}
	embedResponse, err := a.client.Models.EmbedContent(ctx,
		a.embeddingModel,
		contents,
		nil,
	)
	a.logger.Sugar().Infof("invoking embedding model with %d chunks", len(chunks))
	if err != nil {
		return nil, fmt.Errorf("embed content error: %w", err)
	}

	if len(embedResponse.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}

	vectors := make([]medrag.Vector, 0, len(embedResponse.Embeddings))

	for i := range embedResponse.Embeddings {
		vectors = append(vectors, embedResponse.Embeddings[i].Values)
	}

	return vectors, nil
}

func (a *Adapter) EmbedContent(ctx context.Context, content string) (medrag.Vector, error) {
	embedResponse, err := a.client.Models.EmbedContent(ctx,
		a.embeddingModel,
		[]*genai.Content{genai.NewContentFromText(content, genai.RoleUser)},
		nil,
	)
	if err != nil {
		return medrag.Vector{}, err
	}
	return embedResponse.Embeddings[0].Values, nil
}
