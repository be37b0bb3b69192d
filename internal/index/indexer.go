package index

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nikkelr/chat-with-PDF/internal/embedding"
	"github.com/nikkelr/chat-with-PDF/internal/models"
)

// Indexer embeds chunks and hands the unit vectors to a backend.
type Indexer struct {
	Embedder embedding.Provider
	Backend  Backend
}

// NewIndexer creates an indexer; a nil backend means MemoryBackend.
func NewIndexer(embedder embedding.Provider, backend Backend) *Indexer {
	if backend == nil {
		backend = MemoryBackend{}
	}
	return &Indexer{Embedder: embedder, Backend: backend}
}

// Build embeds every chunk and creates the session's index. Either every
// chunk is indexed or an error is returned and nothing is kept.
func (ix *Indexer) Build(ctx context.Context, sessionID string, chunks []models.TextChunk) (Index, error) {
	if len(chunks) == 0 {
		return nil, models.NewError(models.KindEmptyInput, "no chunks to index")
	}

	start := time.Now()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := ix.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if models.KindOf(err) == models.KindEmbedding {
			return nil, err
		}
		return nil, models.WrapError(models.KindEmbedding, err, "embedding %d chunks", len(chunks))
	}
	if len(vectors) != len(chunks) {
		return nil, models.NewError(models.KindEmbedding,
			"got %d embeddings for %d chunks", len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, models.NewError(models.KindEmbedding,
				"embedding %d has dimension %d, want %d", i, len(v), dim)
		}
		vectors[i] = embedding.Normalize(v)
	}

	idx, err := ix.Backend.Create(ctx, sessionID, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to store index in %s backend: %w", ix.Backend.Name(), err)
	}

	log.Printf("Indexed %d chunks (dim %d) with %s in %v",
		len(chunks), dim, ix.Embedder.ModelName(), time.Since(start).Round(time.Millisecond))
	return idx, nil
}
