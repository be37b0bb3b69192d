// Package providerfactory builds the embedding provider, index backend,
// language model and chat service selected by the configuration.
package providerfactory

import (
	"context"
	"fmt"

	"github.com/nikkelr/chat-with-PDF/internal/chat"
	"github.com/nikkelr/chat-with-PDF/internal/config"
	"github.com/nikkelr/chat-with-PDF/internal/database"
	"github.com/nikkelr/chat-with-PDF/internal/embedding"
	"github.com/nikkelr/chat-with-PDF/internal/index"
	"github.com/nikkelr/chat-with-PDF/internal/llm"
	"github.com/nikkelr/chat-with-PDF/internal/logging"
	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/processor"
	"github.com/nikkelr/chat-with-PDF/internal/session"
)

// NewEmbedder returns the configured embedding provider behind a Batcher.
func NewEmbedder(ctx context.Context, cfg *config.Config) (embedding.Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}
	ec := cfg.Embedding

	var provider embedding.Provider
	switch ec.Provider {
	case config.ProviderOllama:
		p, err := embedding.NewOllamaEmbedder(ec.Host, ec.Model, ec.Timeout)
		if err != nil {
			return nil, err
		}
		provider = p
	case config.ProviderOpenAI:
		p, err := embedding.NewOpenAIEmbedder(ctx, &embedding.OpenAIConfig{
			APIKey:  cfg.EmbeddingAPIKey(),
			BaseURL: ec.BaseURL,
			Model:   ec.Model,
			Timeout: ec.Timeout,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, models.NewError(models.KindInvalidConfiguration, "unknown embedding provider %q", ec.Provider)
	}

	logging.LogEvent("Embedding provider ready: %s (batch %d, %d concurrent)",
		provider.ModelName(), ec.BatchSize, ec.MaxConcurrent)
	return embedding.NewBatcher(provider, ec.BatchSize, ec.MaxConcurrent, ec.RequestsPerSecond), nil
}

// NewLLM returns the configured language model. A hosted provider without a
// usable credential yields an llm.Unavailable backend rather than an error,
// so the API can still start and report itself as not configured.
func NewLLM(ctx context.Context, cfg *config.Config) (llm.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}
	lc := cfg.LLM

	switch lc.Provider {
	case config.ProviderOllama:
		backend, err := llm.NewOllamaLLM(lc.Host, lc.Model, lc.Timeout)
		if err != nil {
			return nil, err
		}
		logging.LogEvent("LLM ready: %s", backend.ModelName())
		return backend, nil
	case config.ProviderOpenRouter:
		if !cfg.APIConfigured() {
			logging.LogEvent("LLM unavailable: no API key for %s", lc.Provider)
			return llm.Unavailable{
				Model: lc.Model,
				Err:   models.NewError(models.KindNotConfigured, "API key for %s is not configured", lc.Provider),
			}, nil
		}
		backend, err := llm.NewOpenAILLM(ctx, &llm.OpenAIConfig{
			APIKey:  lc.APIKey,
			BaseURL: lc.BaseURL,
			Model:   lc.Model,
			AppURL:  lc.AppURL,
			AppName: lc.AppName,
			Timeout: lc.Timeout,
		})
		if err != nil {
			return nil, err
		}
		logging.LogEvent("LLM ready: %s via %s", backend.ModelName(), lc.BaseURL)
		return backend, nil
	default:
		return nil, models.NewError(models.KindInvalidConfiguration, "unknown llm provider %q", lc.Provider)
	}
}

// NewIndexBackend returns the configured index backend and a function that
// releases it.
func NewIndexBackend(ctx context.Context, cfg *config.Config) (index.Backend, func(), error) {
	switch cfg.Index.Backend {
	case config.BackendMemory:
		return index.MemoryBackend{}, func() {}, nil
	case config.BackendPostgres:
		store, err := database.NewVectorStore(ctx, cfg.Index.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.Initialize(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logging.LogEvent("Index backend ready: %s", store.Name())
		return store, store.Close, nil
	default:
		return nil, nil, models.NewError(models.KindInvalidConfiguration, "unknown index backend %q", cfg.Index.Backend)
	}
}

// NewService wires a chat service from cfg. The returned function closes
// every session and then the index backend.
func NewService(ctx context.Context, cfg *config.Config) (*chat.Service, func(context.Context), error) {
	chunker, err := processor.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, nil, err
	}
	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	backend, err := NewLLM(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	indexBackend, closeBackend, err := NewIndexBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := chat.NewService(
		chunker,
		index.NewIndexer(embedder, indexBackend),
		index.NewRetriever(embedder, cfg.Retrieval.K),
		llm.NewAnswerGenerator(backend, llm.Options{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}),
		session.NewStore(),
		cfg.APIConfigured,
	)

	closeFn := func(ctx context.Context) {
		svc.Close(ctx)
		closeBackend()
	}
	return svc, closeFn, nil
}
