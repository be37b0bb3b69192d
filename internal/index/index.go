// Package index builds per-session similarity indexes over document chunks
// and retrieves the chunks closest to a question.
package index

import (
	"context"

	"github.com/nikkelr/chat-with-PDF/internal/models"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 4

// Index is an immutable set of (chunk, unit vector) pairs owned by one session.
type Index interface {
	// Search returns up to k chunks ordered by descending similarity to the
	// unit vector query. Equal scores keep chunk order.
	Search(ctx context.Context, query []float64, k int) ([]models.ScoredChunk, error)
	// Len reports the number of chunks held.
	Len() int
	// Close releases the index. Searching a closed index is an error.
	Close(ctx context.Context) error
}

// Backend stores the pairs for a new index. Create either stores every pair
// or nothing.
type Backend interface {
	Create(ctx context.Context, sessionID string, chunks []models.TextChunk, vectors [][]float64) (Index, error)
	Name() string
}
