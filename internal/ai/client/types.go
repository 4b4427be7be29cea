package client

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
)

var (
	// ErrContentBlocked is returned when the provider refused to complete the request.
	ErrContentBlocked = errors.New("content blocked by provider safety filters")
	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("completion provider is unavailable")
)

// ChatCompletions provides chat completion methods.
type ChatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// ChatCompletionsFunc adapts a function to the ChatCompletions interface.
type ChatCompletionsFunc func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

// New calls f.
func (f ChatCompletionsFunc) New(
	ctx context.Context, params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return f(ctx, params)
}
