package redis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/medkbase/medrag"
)

func (a *Adapter) SaveChunks(ctx context.Context, chunks []medrag.Chunk) error {
	for _, chunk := range chunks {
		key := fmt.Sprintf("%s%s", a.indexPrefix, chunk.ID)
		fields, err := a.client.HSet(ctx,
			key,
			map[string]any{
				"chunk_id":    chunk.ID.String(),
				"text":        chunk.Text,
				"topic":       chunk.Topic,
				"source":      chunk.Source,
				"source_type": chunk.SourceType,
			},
		).Result()
		if err != nil {
			return err
		}
		if fields == 0 {
			return fmt.Errorf("no fields were added to redis")
		}
	}

	return nil
}

// SearchChunks runs a BM25-scored full-text query over the chunk index. The
// results come back with their raw relevance scores, highest first; score
// normalisation is the caller's job.
func (a *Adapter) SearchChunks(ctx context.Context, query string, limit int) ([]medrag.ScoredChunk, error) {
	terms := queryTerms(query)
	if terms == "" {
		return nil, nil
	}

	results, err := a.client.FTSearchWithArgs(ctx,
		a.indexName,
		terms,
		&redis.FTSearchOptions{
			Return: []redis.FTSearchReturn{
				{FieldName: "chunk_id"},
				{FieldName: "text"},
				{FieldName: "topic"},
				{FieldName: "source"},
				{FieldName: "source_type"},
			},
			DialectVersion: a.dialectVersion,
			Scorer:         "BM25",
			WithScores:     true,
			Limit:          limit,
		},
	).Result()
	if err != nil {
		return nil, err
	}

	return mapRedisChunks(results.Docs)
}

var termPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// queryTerms turns free-form question text into a RediSearch query. Raw user
// input can contain query syntax characters, so only word tokens survive,
// joined as a union so any matching term scores the chunk.
func queryTerms(query string) string {
	return strings.Join(termPattern.FindAllString(query, -1), "|")
}

func mapRedisChunks(rds []redis.Document) ([]medrag.ScoredChunk, error) {
	chunks := make([]medrag.ScoredChunk, 0, len(rds))

	for _, rd := range rds {
		aChunk, err := mapRedisChunk(rd)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, aChunk)
	}

	return chunks, nil
}

func mapRedisChunk(rd redis.Document) (medrag.ScoredChunk, error) {
	chunkID, ok := rd.Fields["chunk_id"]
	if !ok {
		return medrag.ScoredChunk{}, fmt.Errorf("missing chunk_id field in document")
	}
	text, ok := rd.Fields["text"]
	if !ok {
		return medrag.ScoredChunk{}, fmt.Errorf("missing text field in document")
	}

	var score float64
	if rd.Score != nil {
		score = *rd.Score
	}

	return medrag.ScoredChunk{
		Chunk: medrag.Chunk{
			ID:         medrag.ChunkID(chunkID),
			Text:       text,
			Topic:      rd.Fields["topic"],
			Source:     rd.Fields["source"],
			SourceType: rd.Fields["source_type"],
		},
		Score: score,
	}, nil
}
