package embedding

import (
	"context"
	"fmt"

	"github.com/nikkelr/chat-with-PDF/internal/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Ensure Batcher implements the interface.
var _ Provider = (*Batcher)(nil)

// Batcher splits large inputs into provider-sized batches and embeds them in
// parallel. A failure in any batch fails the whole call.
type Batcher struct {
	Provider      Provider
	BatchSize     int
	MaxConcurrent int
	// Limiter paces provider calls; nil means unlimited.
	Limiter *rate.Limiter
}

// NewBatcher creates a batcher around provider. requestsPerSecond <= 0 disables pacing.
func NewBatcher(provider Provider, batchSize, maxConcurrent int, requestsPerSecond float64) *Batcher {
	if batchSize <= 0 {
		batchSize = 32
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	b := &Batcher{
		Provider:      provider,
		BatchSize:     batchSize,
		MaxConcurrent: maxConcurrent,
	}
	if requestsPerSecond > 0 {
		b.Limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return b
}

// EmbedBatch generates embeddings for all texts
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.MaxConcurrent)

	for start := 0; start < len(texts); start += b.BatchSize {
		end := min(start+b.BatchSize, len(texts))

		g.Go(func() error {
			if b.Limiter != nil {
				if err := b.Limiter.Wait(gctx); err != nil {
					return models.WrapError(models.KindEmbedding, err, "waiting for embedding rate limit")
				}
			}

			out, err := b.Provider.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(out) != end-start {
				return models.NewError(models.KindEmbedding,
					"provider returned %d embeddings for %d inputs", len(out), end-start)
			}

			// Each goroutine owns a disjoint range of vectors.
			copy(vectors[start:end], out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}

// ModelName returns the wrapped provider's model name
func (b *Batcher) ModelName() string {
	return b.Provider.ModelName()
}
