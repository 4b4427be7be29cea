package client

import "github.com/robalyx/lumi/internal/setup/config"

// ExtraFieldsSettings contains request fields the OpenAI SDK does not model,
// such as OpenRouter's reasoning options.
type ExtraFieldsSettings struct {
	ReasoningEnabled bool
	ReasoningEffort  string
	ReasoningTokens  int
	ReasoningExclude bool
}

// NewExtraFieldsSettings creates settings for the given model configuration.
func NewExtraFieldsSettings(model config.Model) *ExtraFieldsSettings {
	return &ExtraFieldsSettings{
		ReasoningEnabled: model.Reasoning.Enabled,
		ReasoningEffort:  model.Reasoning.Effort,
		ReasoningTokens:  model.Reasoning.MaxTokens,
		ReasoningExclude: model.Reasoning.Exclude,
	}
}

// Build converts the settings to a map for the OpenAI API. It returns nil
// when there is nothing to add.
func (s *ExtraFieldsSettings) Build() map[string]any {
	if !s.ReasoningEnabled {
		return nil
	}

	reasoning := map[string]any{
		"enabled": true,
		"exclude": s.ReasoningExclude,
	}

	// Providers accept either an effort level or a token budget
	switch {
	case s.ReasoningEffort != "":
		reasoning["effort"] = s.ReasoningEffort
	case s.ReasoningTokens > 0:
		reasoning["max_tokens"] = s.ReasoningTokens
	}

	return map[string]any{"reasoning": reasoning}
}
