package provider

import (
	"github.com/papercomputeco/minutes/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/minutes/pkg/llm/provider/gemini"
	"github.com/papercomputeco/minutes/pkg/llm/provider/ollama"
	"github.com/papercomputeco/minutes/pkg/llm/provider/openai"
	"github.com/papercomputeco/minutes/pkg/llm/provider/static"
)

// Supported provider type constants
const (
	Anthropic = anthropic.Name
	OpenAI    = openai.Name
	Ollama    = ollama.Name
	Gemini    = gemini.Name
	Static    = static.Name
)

// envVars maps providers that need a key to their environment variable.
var envVars = map[string]string{
	OpenAI:    "OPENAI_API_KEY",
	Anthropic: "ANTHROPIC_API_KEY",
	Gemini:    "GEMINI_API_KEY",
}

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama, Gemini, Static}
}

// NeedsKey reports whether provider requires an API key.
func NeedsKey(provider string) bool {
	_, ok := envVars[provider]
	return ok
}

// EnvVar returns the environment variable consulted for provider's key.
func EnvVar(provider string) string {
	return envVars[provider]
}
