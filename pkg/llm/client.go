// Package llm defines the provider-agnostic text completion contract used by
// the summarizer and the optional capabilities a provider may expose.
package llm

import "context"

// Reply is the result of a single completion.
type Reply struct {
	// Content is the generated text.
	Content string `json:"content"`

	// Model is the model that produced the reply, when the provider reports it.
	Model string `json:"model,omitempty"`

	// TokensUsed is the total token count, when the provider reports it.
	TokensUsed int `json:"tokens_used,omitempty"`
}

// Client turns a prompt into generated text.
//
// Implementations must be safe for concurrent use and honor ctx cancellation.
// Errors returned from Complete should be *Error so callers can classify them;
// KindOf handles anything else.
type Client interface {
	Complete(ctx context.Context, prompt string, history []Message) (*Reply, error)
}

// ModelSwitcher is implemented by clients whose active model can change at runtime.
type ModelSwitcher interface {
	Model() string
	SetModel(model string) error
}

// Named is implemented by clients that report their provider name.
type Named interface {
	Provider() string
}

// Caps describes the optional capabilities of a Client, resolved once.
type Caps struct {
	Provider string
	Switcher ModelSwitcher
}

// CanSwitchModel reports whether the client accepts SetModel.
func (c Caps) CanSwitchModel() bool {
	return c.Switcher != nil
}

// Model returns the active model name, or "" when unknown.
func (c Caps) Model() string {
	if c.Switcher == nil {
		return ""
	}
	return c.Switcher.Model()
}

// Capabilities inspects client once and returns what it supports.
func Capabilities(client Client) Caps {
	caps := Caps{}
	if sw, ok := client.(ModelSwitcher); ok {
		caps.Switcher = sw
	}
	if n, ok := client.(Named); ok {
		caps.Provider = n.Provider()
	}
	return caps
}
