// Package anthropic implements llm.Client against the Anthropic messages API.
package anthropic

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
	Name = "anthropic"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-haiku-4-5-20251001"

	// DefaultBaseURL is the public Anthropic endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion       = "2023-06-01"
	defaultMaxTokens = 2048
)

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls /v1/messages.
type Client struct {
	apiKey    string
	baseURL   string
	maxTokens int
	timeout   time.Duration
	http      *http.Client
	model     *transport.Model
}

// New creates an Anthropic client.
func New(c Config) *Client {
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		apiKey:    c.APIKey,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		timeout:   c.Timeout,
		http:      c.HTTPClient,
		model:     transport.NewModel(c.Model, DefaultModel),
	}
}

// Provider returns "anthropic".
func (c *Client) Provider() string { return Name }

// Model returns the active model.
func (c *Client) Model() string { return c.model.Get() }

// SetModel switches the model used by subsequent completions.
func (c *Client) SetModel(model string) error { return c.model.Set(model) }

// Complete sends history followed by prompt. System messages in history are
// lifted into the top-level system field.
func (c *Client) Complete(ctx context.Context, prompt string, history []llm.Message) (*llm.Reply, error) {
	var system []string
	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, anthropicMessage{Role: "user", Content: prompt})

	var result anthropicResponse
	err := transport.PostJSON(ctx, c.http, transport.Request{
		Provider: Name,
		URL:      c.baseURL + "/v1/messages",
		Headers: map[string]string{
			"x-api-key":         c.apiKey,
			"anthropic-version": apiVersion,
		},
		Timeout: c.timeout,
		Body: anthropicRequest{
			Model:     c.model.Get(),
			Messages:  messages,
			System:    strings.Join(system, "\n\n"),
			MaxTokens: c.maxTokens,
		},
	}, &result)
	if err != nil {
		return nil, err
	}

	if result.Error != nil {
		return nil, llm.Permanent(Name, errors.New(result.Error.Message))
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, llm.Transient(Name, llm.ErrEmptyReply)
	}

	reply := &llm.Reply{
		Content: text.String(),
		Model:   result.Model,
	}
	if result.Usage != nil {
		reply.TokensUsed = result.Usage.InputTokens + result.Usage.OutputTokens
	}

	return reply, nil
}
