package index

import (
	"context"
	"sort"
	"sync"

	"github.com/nikkelr/chat-with-PDF/internal/embedding"
	"github.com/nikkelr/chat-with-PDF/internal/models"
)

var (
	_ Backend = MemoryBackend{}
	_ Index   = (*memoryIndex)(nil)
)

// MemoryBackend keeps indexes in process memory and searches them by brute force.
type MemoryBackend struct{}

// Name returns the backend name used in configuration.
func (MemoryBackend) Name() string { return "memory" }

// Create copies chunks and vectors into a new in-memory index.
func (MemoryBackend) Create(_ context.Context, _ string, chunks []models.TextChunk, vectors [][]float64) (Index, error) {
	if len(chunks) != len(vectors) {
		return nil, models.NewError(models.KindEmbedding,
			"%d chunks but %d vectors", len(chunks), len(vectors))
	}
	idx := &memoryIndex{
		chunks:  make([]models.TextChunk, len(chunks)),
		vectors: make([][]float64, len(vectors)),
	}
	copy(idx.chunks, chunks)
	copy(idx.vectors, vectors)
	return idx, nil
}

type memoryIndex struct {
	mu      sync.RWMutex
	chunks  []models.TextChunk
	vectors [][]float64
	closed  bool
}

func (m *memoryIndex) Search(_ context.Context, query []float64, k int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, models.NewError(models.KindNotFound, "index is closed")
	}
	if k <= 0 {
		k = DefaultK
	}

	// vectors are unit length, so the dot product is the cosine similarity
	scores := make([]float64, len(m.vectors))
	for i, v := range m.vectors {
		scores[i] = embedding.Dot(v, query)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	k = min(k, len(order))
	results := make([]models.ScoredChunk, 0, k)
	for _, j := range order[:k] {
		results = append(results, models.ScoredChunk{Chunk: m.chunks[j], Score: scores[j]})
	}
	return results, nil
}

func (m *memoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func (m *memoryIndex) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.chunks = nil
	m.vectors = nil
	return nil
}
