package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/nikkelr/chat-with-PDF/internal/logging"
	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/upstream"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaModel is the embedding model used when none is configured
const DefaultOllamaModel = "nomic-embed-text"

// Ensure OllamaEmbedder implements the interface.
var _ Provider = (*OllamaEmbedder)(nil)

// OllamaEmbedder generates embeddings using Ollama API
type OllamaEmbedder struct {
	Client  *api.Client
	Model   string
	Timeout time.Duration
	host    string
}

// NewOllamaEmbedder creates a new Ollama embedder
func NewOllamaEmbedder(host string, model string, timeout time.Duration) (*OllamaEmbedder, error) {
	client, err := upstream.OllamaClient(host, nil)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OllamaEmbedder{
		Client:  client,
		Model:   model,
		Timeout: timeout,
		host:    host,
	}, nil
}

// EmbedBatch generates one embedding per text with a single /api/embed call
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	req := api.EmbedRequest{
		Model: e.Model,
		Input: texts,
	}

	// Create a context with timeout
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	logging.LogRequest("out", e.host, e.Model, "embed", map[string]int{"inputs": len(texts)})
	resp, err := e.Client.Embed(ctxWithTimeout, &req)
	if err != nil {
		return nil, upstream.Classify(models.KindEmbedding, err, "ollama embed with %s", e.Model)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, models.NewError(models.KindEmbedding,
			"ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb) == 0 {
			return nil, models.NewError(models.KindEmbedding, "ollama returned an empty embedding for input %d", i)
		}
		vectors[i] = make([]float64, len(emb))
		for j, v := range emb {
			vectors[i][j] = float64(v)
		}
	}

	return vectors, nil
}

// ModelName returns the embedding model name
func (e *OllamaEmbedder) ModelName() string {
	return fmt.Sprintf("ollama/%s", e.Model)
}
