package llm

import (
	"context"
	"net/http"
	"time"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/nikkelr/chat-with-PDF/internal/logging"
	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/upstream"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "openai/gpt-3.5-turbo"
)

var _ Backend = (*OpenAILLM)(nil)

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint.
// AppURL and AppName are sent as the OpenRouter attribution headers.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	AppURL  string
	AppName string
	Timeout time.Duration
}

// OpenAILLM completes prompts through OpenRouter or any OpenAI-compatible API
type OpenAILLM struct {
	chat    model.BaseChatModel
	model   string
	baseURL string
}

// NewOpenAILLM creates a chat model client from config
func NewOpenAILLM(ctx context.Context, config *OpenAIConfig) (*OpenAILLM, error) {
	if config.APIKey == "" {
		return nil, models.NewError(models.KindNotConfigured, "API key is required")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	modelName := config.Model
	if modelName == "" {
		modelName = DefaultOpenRouterModel
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &headerTransport{
			headers: attributionHeaders(config.AppURL, config.AppName),
			base:    http.DefaultTransport,
		},
	}

	chat, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:     config.APIKey,
		BaseURL:    baseURL,
		Model:      modelName,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, models.WrapError(models.KindInvalidConfiguration, err, "create chat model %s", modelName)
	}
	return newOpenAILLM(chat, modelName, baseURL), nil
}

func newOpenAILLM(chat model.BaseChatModel, modelName, baseURL string) *OpenAILLM {
	return &OpenAILLM{chat: chat, model: modelName, baseURL: baseURL}
}

// Complete sends the prompt as a single user message
func (o *OpenAILLM) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	logging.LogRequest("out", o.baseURL, o.model, "chat", map[string]int{"prompt_chars": len(prompt)})

	msg, err := o.chat.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithTemperature(float32(opts.Temperature)),
		model.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", upstream.Classify(models.KindUpstream, err, "chat completion with %s", o.model)
	}
	if msg == nil {
		return "", models.NewError(models.KindUpstream, "chat completion with %s returned no message", o.model)
	}
	return msg.Content, nil
}

func (o *OpenAILLM) ModelName() string {
	return o.model
}

func attributionHeaders(appURL, appName string) http.Header {
	h := http.Header{}
	if appURL != "" {
		h.Set("HTTP-Referer", appURL)
	}
	if appName != "" {
		h.Set("X-Title", appName)
	}
	return h
}

// headerTransport adds fixed headers to every request
type headerTransport struct {
	headers http.Header
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header[k] = v
	}
	return t.base.RoundTrip(req)
}
