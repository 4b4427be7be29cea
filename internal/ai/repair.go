package ai

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/bytedance/sonic"
	"github.com/openai/openai-go"
	"github.com/robalyx/lumi/internal/ai/client"
)

var (
	// ErrRepairExhausted is returned when no attempt produced valid output.
	ErrRepairExhausted = errors.New("model did not produce valid output")
	// ErrEmptyResponse is returned when a completion has no usable content.
	ErrEmptyResponse = errors.New("empty response from model")
)

// repairPrompt is sent after output that could not be decoded.
const repairPrompt = "Failed to parse JSON:\n%s\nTry again, and ensure your response is valid JSON"

// Validator is implemented by decoded results that need checks beyond JSON syntax.
type Validator interface {
	Validate() error
}

// DecodeWithRepair requests a completion and decodes it as T. When the output
// cannot be decoded the error is appended to the conversation as a system
// message and the request is repeated, up to maxAttempts requests in total.
// Provider errors are returned immediately. The number of requests made is
// returned alongside the result.
func DecodeWithRepair[T any](
	ctx context.Context, chat client.ChatCompletions, params openai.ChatCompletionNewParams, maxAttempts int,
) (*T, int, error) {
	maxAttempts = max(maxAttempts, 1)
	params.Messages = slices.Clone(params.Messages)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := chat.New(ctx, params)
		if err != nil {
			return nil, attempt, err
		}

		result, err := decode[T](resp)
		if err == nil {
			return result, attempt, nil
		}

		lastErr = err
		params.Messages = append(params.Messages, openai.SystemMessage(fmt.Sprintf(repairPrompt, err)))
	}

	return nil, maxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrRepairExhausted, maxAttempts, lastErr)
}

// decode extracts and validates the first choice of a completion.
func decode[T any](resp *openai.ChatCompletion) (*T, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}

	content := cleanJSON(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: no content", ErrEmptyResponse)
	}

	var result T
	if err := sonic.UnmarshalString(content, &result); err != nil {
		return nil, err
	}

	if v, ok := any(&result).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	return &result, nil
}
