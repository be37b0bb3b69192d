package embedding

import (
	"context"
	"fmt"
	"time"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"

	"github.com/nikkelr/chat-with-PDF/internal/logging"
	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/upstream"
)

// DefaultOpenAIModel is used when no embedding model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

var _ Provider = (*OpenAIEmbedder)(nil)

// OpenAIConfig configures an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIEmbedder embeds text through any OpenAI-compatible /embeddings API.
type OpenAIEmbedder struct {
	embedder einoEmbedding.Embedder
	model    string
	baseURL  string
	timeout  time.Duration
}

// NewOpenAIEmbedder creates an embedder from config.
func NewOpenAIEmbedder(ctx context.Context, config *OpenAIConfig) (*OpenAIEmbedder, error) {
	if config.APIKey == "" {
		return nil, models.NewError(models.KindInvalidConfiguration, "embedding API key is required")
	}
	modelName := config.Model
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	emb, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  config.APIKey,
		BaseURL: config.BaseURL,
		Model:   modelName,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}
	return newOpenAIEmbedder(emb, modelName, config.BaseURL, timeout), nil
}

func newOpenAIEmbedder(emb einoEmbedding.Embedder, modelName, baseURL string, timeout time.Duration) *OpenAIEmbedder {
	return &OpenAIEmbedder{embedder: emb, model: modelName, baseURL: baseURL, timeout: timeout}
}

// EmbedBatch embeds texts with a single request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	logging.LogRequest("out", e.baseURL, e.model, "embed", map[string]int{"inputs": len(texts)})
	vectors, err := e.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, upstream.Classify(models.KindEmbedding, err, "openai embed with %s", e.model)
	}
	if len(vectors) != len(texts) {
		return nil, models.NewError(models.KindEmbedding,
			"embedding API returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) ModelName() string {
	return "openai/" + e.model
}
