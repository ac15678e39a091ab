package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/medkbase/medrag"
)

func (a *Adapter) SaveChunks(ctx context.Context, chunks []medrag.Chunk, vectors []medrag.Vector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}

	// Convert our chunks - along with their embedding vectors - into types
	// used by the Weaviate client library.
	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("empty vector")
		}
		objects[i] = &models.Object{
			Class: className,
			Properties: map[string]any{
				"chunk_id":    chunk.ID.String(),
				"text":        chunk.Text,
				"topic":       chunk.Topic,
				"source":      chunk.Source,
				"source_type": chunk.SourceType,
			},
			Vector: models.C11yVector(vectors[i]),
		}
	}

	_, err := a.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	return err
}

func (a *Adapter) SearchChunks(ctx context.Context, vector medrag.Vector, limit int) ([]medrag.ScoredChunk, error) {
	gql := a.client.GraphQL()
	nearVector := gql.NearVectorArgBuilder().WithVector([]float32(vector))

	builder := gql.Get().
		WithNearVector(nearVector).
		WithClassName(className).
		WithFields(
			graphql.Field{Name: "chunk_id"},
			graphql.Field{Name: "text"},
			graphql.Field{Name: "topic"},
			graphql.Field{Name: "source"},
			graphql.Field{Name: "source_type"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{
				{Name: "certainty"},
			}},
		).
		WithLimit(limit)

	graphqlResponse, err := builder.Do(ctx)
	if err := combinedWeaviateError(graphqlResponse, err); err != nil {
		return nil, err
	}

	return decodeGetChunkResults(graphqlResponse)
}

// decodeGetChunkResults decodes the result returned by Weaviate's GraphQL Get
// query; these are returned as a nested map[string]any (just like JSON
// unmarshaled into a map[string]any). We extract the chunk properties plus
// the certainty score reported under _additional.
func decodeGetChunkResults(graphqlResponse *models.GraphQLResponse) ([]medrag.ScoredChunk, error) {
	data, ok := graphqlResponse.Data["Get"]
	if !ok {
		return nil, fmt.Errorf("get key not found in result")
	}
	get, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("get key unexpected type")
	}
	slc, ok := get[className].([]any)
	if !ok {
		return nil, fmt.Errorf("chunk is not a list of results")
	}

	var out []medrag.ScoredChunk
	for _, s := range slc {
		smap, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid element in list of chunks")
		}
		chunkID, ok := smap["chunk_id"].(string)
		if !ok {
			return nil, fmt.Errorf("expected chunk_id in chunk")
		}
		text, ok := smap["text"].(string)
		if !ok {
			return nil, fmt.Errorf("expected text in chunk")
		}
		additional, ok := smap["_additional"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected _additional in chunk")
		}
		certainty, ok := additional["certainty"].(float64)
		if !ok {
			return nil, fmt.Errorf("expected certainty in chunk")
		}

		chunk := medrag.Chunk{
			ID:   medrag.ChunkID(chunkID),
			Text: text,
		}
		// Optional metadata, tolerated missing on older corpora.
		if topic, ok := smap["topic"].(string); ok {
			chunk.Topic = topic
		}
		if source, ok := smap["source"].(string); ok {
			chunk.Source = source
		}
		if sourceType, ok := smap["source_type"].(string); ok {
			chunk.SourceType = sourceType
		}

		out = append(out, medrag.ScoredChunk{
			Chunk: chunk,
			Score: certainty,
		})
	}
	return out, nil
}

// combinedWeaviateError generates an error if err is non-nil or result has
// errors, and returns an error (or nil if there's no error). It's useful for
// the results of the Weaviate GraphQL API's "Do" calls.
func combinedWeaviateError(graphqlResponse *models.GraphQLResponse, err error) error {
	if err != nil {
		return err
	}
	if len(graphqlResponse.Errors) != 0 {
		var ss []string
		for _, e := range graphqlResponse.Errors {
			ss = append(ss, e.Message)
		}
		return fmt.Errorf("weaviate error: %v", ss)
	}
	return nil
}
