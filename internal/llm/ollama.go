package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nikkelr/chat-with-PDF/internal/logging"
	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/upstream"

	"github.com/ollama/ollama/api"
)

var _ Backend = (*OllamaLLM)(nil)

// OllamaLLM handles interactions with the Ollama LLM API
type OllamaLLM struct {
	Client  *api.Client
	Model   string
	Timeout time.Duration
	host    string
}

// NewOllamaLLM creates a new Ollama LLM client
func NewOllamaLLM(host string, model string, timeout time.Duration) (*OllamaLLM, error) {
	client, err := upstream.OllamaClient(host, nil)
	if err != nil {
		return nil, err
	}
	if model == "" {
		return nil, models.NewError(models.KindInvalidConfiguration, "ollama model is required")
	}

	return &OllamaLLM{
		Client:  client,
		Model:   model,
		Timeout: timeout,
		host:    host,
	}, nil
}

// Complete generates a response from the LLM
func (o *OllamaLLM) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	var responseBuilder strings.Builder

	logging.LogRequest("out", o.host, o.Model, "generate", map[string]int{"prompt_chars": len(prompt)})
	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", upstream.Classify(models.KindUpstream, err, "failed to generate response with %s", o.Model)
	}

	return responseBuilder.String(), nil
}

func (o *OllamaLLM) ModelName() string {
	return fmt.Sprintf("ollama/%s", o.Model)
}
