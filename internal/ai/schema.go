package ai

import (
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
)

// GenerateSchema generates a JSON schema for structured model output.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// jsonSchemaFormat builds a strict JSON schema response format.
func jsonSchemaFormat(name, description string, schema any) openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: openai.String(description),
				Schema:      schema,
				Strict:      openai.Bool(true),
			},
		},
	}
}

// cleanJSON removes reasoning blocks and markdown fences some models wrap
// around structured output.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)

	if start := strings.Index(content, "<think>"); start != -1 {
		if end := strings.Index(content, "</think>"); end > start {
			content = strings.TrimSpace(content[:start] + content[end+len("</think>"):])
		}
	}

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	return content
}
