package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/llm/provider/internal/transport"
)

const (
	// Name is the canonical provider name.
	Name = "ollama"

	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the local Ollama daemon.
	DefaultBaseURL = "http://localhost:11434"
)

// Config configures a Client. Ollama needs no API key.
type Config struct {
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls /api/chat with streaming disabled.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	model   *transport.Model
}

// New creates an Ollama client.
func New(c Config) *Client {
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		timeout: c.Timeout,
		http:    c.HTTPClient,
		model:   transport.NewModel(c.Model, DefaultModel),
	}
}

// Provider returns "ollama".
func (c *Client) Provider() string { return Name }

// Model returns the active model.
func (c *Client) Model() string { return c.model.Get() }

// SetModel switches the model used by subsequent completions.
func (c *Client) SetModel(model string) error { return c.model.Set(model) }

// Complete sends history followed by prompt.
func (c *Client) Complete(ctx context.Context, prompt string, history []llm.Message) (*llm.Reply, error) {
	messages := make([]ollamaMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: prompt})

	var result ollamaResponse
	err := transport.PostJSON(ctx, c.http, transport.Request{
		Provider: Name,
		URL:      c.baseURL + "/api/chat",
		Timeout:  c.timeout,
		Body: ollamaRequest{
			Model:    c.model.Get(),
			Messages: messages,
			Stream:   false,
		},
	}, &result)
	if err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, llm.Permanent(Name, errors.New(result.Error))
	}
	if strings.TrimSpace(result.Message.Content) == "" {
		return nil, llm.Transient(Name, llm.ErrEmptyReply)
	}

	return &llm.Reply{
		Content:    result.Message.Content,
		Model:      result.Model,
		TokensUsed: result.PromptEvalCount + result.EvalCount,
	}, nil
}
