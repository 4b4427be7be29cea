package ai_test

import (
	"context"
	"sync"

	"github.com/openai/openai-go"
	"github.com/robalyx/lumi/internal/setup/config"
)

// scriptedChat returns canned completions in order and records every request.
type scriptedChat struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []openai.ChatCompletionNewParams
}

func (s *scriptedChat) New(_ context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, params)
	if s.err != nil {
		return nil, s.err
	}

	i := min(len(s.requests)-1, len(s.responses)-1)
	return completion(s.responses[i]), nil
}

func completion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			FinishReason: "stop",
			Message:      openai.ChatCompletionMessage{Content: content},
		}},
	}
}

type staticConfig struct {
	cfg *config.Config
}

func (s staticConfig) Get() *config.Config {
	return s.cfg
}

func newConfig(maxAttempts int) staticConfig {
	return staticConfig{cfg: &config.Config{
		Bot: config.BotConfig{
			Chat: config.Chat{MaxAttempts: maxAttempts},
			Models: config.Models{
				Chat:  config.Model{Name: "chat-model"},
				Judge: config.Model{Name: "judge-model", Reasoning: config.Reasoning{Enabled: true, Effort: "low"}},
			},
		},
	}}
}

// systemContent returns the text of a system message, or "" for other roles.
func systemContent(m openai.ChatCompletionMessageParamUnion) string {
	if m.OfSystem == nil {
		return ""
	}
	return m.OfSystem.Content.OfString.Value
}
