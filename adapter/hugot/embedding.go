package hugot

import (
	"context"
	"fmt"

	"github.com/medkbase/medrag"
)

func (a *Adapter) EmbedChunks(ctx context.Context, chunks []medrag.Chunk) ([]medrag.Vector, error) {
	if a.embedding == nil {
		return nil, fmt.Errorf("embedding model not configured")
	}

	sentences := make([]string, 0, len(chunks))
	for _, aChunk := range chunks {
		sentences = append(sentences, aChunk.Text)
	}

	embeddingResult, err := a.embedding.RunPipeline(sentences)
	if err != nil {
		return nil, err
	}

	embeddings := embeddingResult.Embeddings

	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}

	vectors := make([]medrag.Vector, 0, len(embeddings))

	for i := range embeddings {
		vectors = append(vectors, embeddings[i])
	}

	return vectors, nil
}

func (a *Adapter) EmbedContent(ctx context.Context, content string) (medrag.Vector, error) {
	if a.embedding == nil {
		return medrag.Vector{}, fmt.Errorf("embedding model not configured")
	}

	embeddingResult, err := a.embedding.RunPipeline([]string{content})
	if err != nil {
		return medrag.Vector{}, err
	}
	return embeddingResult.Embeddings[0], nil
}
