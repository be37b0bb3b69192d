package llm

import (
	"context"
	"strings"

	"github.com/nikkelr/chat-with-PDF/internal/models"
)

// AnswerGenerator answers a question from retrieved chunks. It never retries.
type AnswerGenerator struct {
	Backend Backend
	Options Options
}

// NewAnswerGenerator creates a new generator, using DefaultMaxTokens when opts sets none.
func NewAnswerGenerator(backend Backend, opts Options) *AnswerGenerator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &AnswerGenerator{Backend: backend, Options: opts}
}

// Answer builds the prompt and returns the model's raw text
func (g *AnswerGenerator) Answer(ctx context.Context, question string, contexts []models.ScoredChunk) (string, error) {
	prompt := GeneratePrompt(question, contexts)

	answer, err := g.Backend.Complete(ctx, prompt, g.Options)
	if err != nil {
		if models.KindOf(err) == models.KindUpstream {
			return "", err
		}
		return "", models.WrapError(models.KindUpstream, err, "completion with %s", g.Backend.ModelName())
	}
	if strings.TrimSpace(answer) == "" {
		return "", models.NewError(models.KindUpstream, "%s returned an empty completion", g.Backend.ModelName())
	}

	return answer, nil
}
