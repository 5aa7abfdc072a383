// Package gemini implements llm.Client with the Google Gen AI SDK against the
// Gemini API backend.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/llm/provider/internal/transport"
)

const (
	// Name is the canonical provider name.
	Name = "gemini"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"
)

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client wraps a genai.Client.
type Client struct {
	genai   *genai.Client
	timeout time.Duration
	model   *transport.Model
}

// New creates a Gemini client.
func New(ctx context.Context, c Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     c.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
	}
	if c.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = transport.DefaultTimeout
	}

	return &Client{
		genai:   client,
		timeout: timeout,
		model:   transport.NewModel(c.Model, DefaultModel),
	}, nil
}

// Provider returns "gemini".
func (c *Client) Provider() string { return Name }

// Model returns the active model.
func (c *Client) Model() string { return c.model.Get() }

// SetModel switches the model used by subsequent completions.
func (c *Client) SetModel(model string) error { return c.model.Set(model) }

// Complete generates content for history followed by prompt. System messages
// become the system instruction; assistant messages use the model role.
func (c *Client) Complete(ctx context.Context, prompt string, history []llm.Message) (*llm.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		system   []string
		contents = make([]*genai.Content, 0, len(history)+1)
	)
	for _, m := range history {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	var gc *genai.GenerateContentConfig
	if len(system) > 0 {
		gc = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser),
		}
	}

	model := c.model.Get()
	result, err := c.genai.Models.GenerateContent(ctx, model, contents, gc)
	if err != nil {
		return nil, classify(err)
	}

	var text strings.Builder
	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, llm.Transient(Name, llm.ErrEmptyReply)
	}

	reply := &llm.Reply{
		Content: text.String(),
		Model:   model,
	}
	if result.ModelVersion != "" {
		reply.Model = result.ModelVersion
	}
	if result.UsageMetadata != nil {
		reply.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}

	return reply, nil
}

// classify maps genai API errors onto llm kinds by HTTP status.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus(apiErrPtr.Code, err)
	}
	return llm.Transient(Name, err)
}

func classifyStatus(code int, err error) error {
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return llm.Transient(Name, err)
	}
	return llm.Permanent(Name, err)
}
