package core

import (
	"strings"
)

var providerDefaultModels = map[string]string{
	"groq":      "llama-3.1-8b-instant",
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-haiku-latest",
	"claude":    "claude-3-5-haiku-latest",
}

// DefaultModelForProvider returns the baked-in default model for a provider key.
func DefaultModelForProvider(provider string) string {
	return providerDefaultModels[strings.ToLower(strings.TrimSpace(provider))]
}

// ResolveModelName picks the configured model if provided, otherwise the provider's default.
func ResolveModelName(provider, configuredModel string) string {
	model := strings.TrimSpace(configuredModel)
	if model != "" {
		return model
	}
	if def := DefaultModelForProvider(provider); def != "" {
		return def
	}
	return "unknown"
}
