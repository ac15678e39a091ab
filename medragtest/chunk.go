package medragtest

import (
	"fmt"
	"strings"

	"github.com/medkbase/medrag"
)

type ChunkOption func(*medrag.Chunk)

func WithChunkID(id medrag.ChunkID) ChunkOption {
	return func(c *medrag.Chunk) {
		c.ID = id
	}
}

func WithChunkText(text string) ChunkOption {
	return func(c *medrag.Chunk) {
		c.Text = text
	}
}

func WithChunkTopic(topic string) ChunkOption {
	return func(c *medrag.Chunk) {
		c.Topic = topic
	}
}

func WithChunkSource(source string) ChunkOption {
	return func(c *medrag.Chunk) {
		c.Source = source
	}
}

var sourceTypes = []string{"nih", "public_health", "journal", "encyclopedia"}

func (g *DataGen) Chunk(options ...ChunkOption) medrag.Chunk {
	source := strings.ToUpper(g.LetterN(3))
	aChunk := medrag.Chunk{
		ID:         medrag.ChunkID(fmt.Sprintf("%s_%s_%02d", source, strings.ToUpper(g.NounAbstract()), g.Number(1, 99))),
		Text:       g.Sentence(12),
		Topic:      g.NounAbstract(),
		Source:     source,
		SourceType: sourceTypes[g.Number(0, len(sourceTypes)-1)],
	}

	for _, o := range options {
		o(&aChunk)
	}

	return aChunk
}

func (g *DataGen) Chunks(n int, options ...ChunkOption) []medrag.Chunk {
	chunks := make([]medrag.Chunk, 0, n)
	for range n {
		chunks = append(chunks, g.Chunk(options...))
	}
	return chunks
}
