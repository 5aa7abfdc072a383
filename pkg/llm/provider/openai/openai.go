// Package openai implements llm.Client against the OpenAI chat completions API
// and any server that speaks it.
package openai

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
	Name = "openai"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the public OpenAI endpoint.
	DefaultBaseURL = "https://api.openai.com"
)

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls /v1/chat/completions.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
	model   *transport.Model
}

// New creates an OpenAI client.
func New(c Config) *Client {
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:  c.APIKey,
		baseURL: baseURL,
		timeout: c.Timeout,
		http:    c.HTTPClient,
		model:   transport.NewModel(c.Model, DefaultModel),
	}
}

// Provider returns "openai".
func (c *Client) Provider() string { return Name }

// Model returns the active model.
func (c *Client) Model() string { return c.model.Get() }

// SetModel switches the model used by subsequent completions.
func (c *Client) SetModel(model string) error { return c.model.Set(model) }

// Complete sends history followed by prompt as a user message.
func (c *Client) Complete(ctx context.Context, prompt string, history []llm.Message) (*llm.Reply, error) {
	messages := make([]openaiMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, openaiMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: prompt})

	var result openaiResponse
	err := transport.PostJSON(ctx, c.http, transport.Request{
		Provider: Name,
		URL:      c.baseURL + "/v1/chat/completions",
		Headers:  map[string]string{"Authorization": "Bearer " + c.apiKey},
		Timeout:  c.timeout,
		Body: openaiRequest{
			Model:    c.model.Get(),
			Messages: messages,
		},
	}, &result)
	if err != nil {
		return nil, err
	}

	if result.Error != nil {
		return nil, llm.Permanent(Name, errors.New(result.Error.Message))
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return nil, llm.Transient(Name, llm.ErrEmptyReply)
	}

	reply := &llm.Reply{
		Content: result.Choices[0].Message.Content,
		Model:   result.Model,
	}
	if result.Usage != nil {
		reply.TokensUsed = result.Usage.TotalTokens
	}

	return reply, nil
}
