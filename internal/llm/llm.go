// Package llm assembles grounded prompts and sends them to a language model.
package llm

import "context"

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// Options control a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Backend completes a prompt with a hosted or local language model.
type Backend interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	ModelName() string
}

// Unavailable stands in for a backend that cannot be built, such as a hosted
// model without a credential. Every completion fails with Err.
type Unavailable struct {
	Model string
	Err   error
}

func (u Unavailable) Complete(context.Context, string, Options) (string, error) {
	return "", u.Err
}

func (u Unavailable) ModelName() string {
	return u.Model
}
