// Package provider constructs llm.Client implementations from configuration.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/minutes/pkg/llm/provider/gemini"
	"github.com/papercomputeco/minutes/pkg/llm/provider/ollama"
	"github.com/papercomputeco/minutes/pkg/llm/provider/openai"
	"github.com/papercomputeco/minutes/pkg/llm/provider/static"
)

// ErrMissingCredential is returned when a provider needs an API key and none
// resolves from the config, the credentials file, or the environment.
var ErrMissingCredential = errors.New("missing API credential")

// KeyStore is the subset of credentials.Manager used to resolve API keys.
type KeyStore interface {
	GetKey(provider string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	Timeout  time.Duration

	// APIKey is the explicit key, highest priority.
	APIKey string

	// Keys is consulted when APIKey is empty.
	Keys KeyStore

	// StaticText is the reply of the static provider.
	StaticText string
}

// New creates the configured llm.Client.
// Resolution order for API key:
//  1. Explicit APIKey in config
//  2. KeyStore (credentials.toml from minutes auth)
//  3. Environment variables (OPENAI_API_KEY / ANTHROPIC_API_KEY / GEMINI_API_KEY)
func New(ctx context.Context, c Config) (llm.Client, error) {
	name := strings.ToLower(strings.TrimSpace(c.Provider))

	apiKey, err := ResolveKey(name, c.APIKey, c.Keys)
	if err != nil {
		return nil, err
	}

	switch name {
	case OpenAI:
		return openai.New(openai.Config{
			APIKey:  apiKey,
			Model:   c.Model,
			BaseURL: c.BaseURL,
			Timeout: c.Timeout,
		}), nil

	case Anthropic:
		return anthropic.New(anthropic.Config{
			APIKey:  apiKey,
			Model:   c.Model,
			BaseURL: c.BaseURL,
			Timeout: c.Timeout,
		}), nil

	case Ollama:
		return ollama.New(ollama.Config{
			Model:   c.Model,
			BaseURL: c.BaseURL,
			Timeout: c.Timeout,
		}), nil

	case Gemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:  apiKey,
			Model:   c.Model,
			BaseURL: c.BaseURL,
			Timeout: c.Timeout,
		})

	case Static:
		return static.New(c.StaticText), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", c.Provider, SupportedProviders())
	}
}

// ResolveKey returns the API key for provider: explicit > store > env.
// Providers that need no key return "" and no error.
func ResolveKey(provider, explicit string, store KeyStore) (string, error) {
	if !NeedsKey(provider) {
		return "", nil
	}

	if explicit != "" {
		return explicit, nil
	}

	if store != nil {
		key, err := store.GetKey(provider)
		if err != nil {
			return "", fmt.Errorf("reading credentials for %s: %w", provider, err)
		}
		if key != "" {
			return key, nil
		}
	}

	if key := os.Getenv(EnvVar(provider)); key != "" {
		return key, nil
	}

	return "", fmt.Errorf("%w for %s: run 'minutes auth %s' or set %s",
		ErrMissingCredential, provider, provider, EnvVar(provider))
}
