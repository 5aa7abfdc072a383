// Package static provides a placeholder llm.Client that always answers with
// the same text. It backs demos and offline runs.
package static

import (
	"context"
	"strings"

	"github.com/papercomputeco/minutes/pkg/llm"
)

// Name is the canonical provider name.
const Name = "static"

// DefaultText is returned when no text is configured.
const DefaultText = "Summary unavailable: no language model is configured."

// Client returns fixed text for every prompt.
type Client struct {
	text string
}

// New creates a static client. A blank text falls back to DefaultText.
func New(text string) *Client {
	if strings.TrimSpace(text) == "" {
		text = DefaultText
	}
	return &Client{text: text}
}

// Provider returns "static".
func (c *Client) Provider() string { return Name }

// Complete returns the configured text unless ctx is already done.
func (c *Client) Complete(ctx context.Context, _ string, _ []llm.Message) (*llm.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, llm.Transient(Name, err)
	}
	return &llm.Reply{Content: c.text, Model: Name}, nil
}
