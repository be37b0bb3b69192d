package index

import (
	"context"

	"github.com/nikkelr/chat-with-PDF/internal/embedding"
	"github.com/nikkelr/chat-with-PDF/internal/models"
)

// Retriever finds the chunks most similar to a question. It must use the
// same embedding provider that built the index.
type Retriever struct {
	Embedder embedding.Provider
	K        int
}

// NewRetriever creates a new retriever returning k chunks, DefaultK when k is not positive.
func NewRetriever(embedder embedding.Provider, k int) *Retriever {
	if k <= 0 {
		k = DefaultK
	}
	return &Retriever{Embedder: embedder, K: k}
}

// Retrieve returns at most K chunks of idx ranked by similarity to query.
func (r *Retriever) Retrieve(ctx context.Context, idx Index, query string) ([]models.ScoredChunk, error) {
	vectors, err := r.Embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		if models.KindOf(err) == models.KindEmbedding {
			return nil, err
		}
		return nil, models.WrapError(models.KindEmbedding, err, "embedding question")
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, models.NewError(models.KindEmbedding, "no embedding returned for question")
	}
	return idx.Search(ctx, embedding.Normalize(vectors[0]), r.K)
}
