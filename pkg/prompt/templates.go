// Package prompt owns the summarization prompt templates: built-in defaults,
// an optional YAML override file, and live reload of that file.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/papercomputeco/minutes/pkg/transcript"
)

const defaultInitial = `You are taking live minutes of a meeting. Below is the opening portion of the transcript.

Transcript:
{{.Transcript}}

Write a concise, analytical summary of the discussion so far. Capture the topics raised, any decisions, open questions, and action items with owners where they were stated. Interpret what the speakers mean in context instead of restating their lines.`

const defaultContinuation = `You are maintaining live minutes of a meeting. Here is the summary so far:

{{.Summary}}

New transcript since that summary:
{{.Transcript}}

Update the summary to incorporate the new discussion. Stay analytical and contextual: connect new points to earlier ones and revise conclusions that changed. Keep decisions and action items current. Return the complete updated summary.`

// Templates holds the raw template text. Both templates are rendered with
// Data.
type Templates struct {
	// Initial is used when no previous summary exists.
	Initial string `yaml:"initial"`

	// Continuation is used when a previous summary exists.
	Continuation string `yaml:"continuation"`
}

// Data is the value templates are executed against.
type Data struct {
	Summary    string
	Transcript string
}

// Defaults returns the built-in templates.
func Defaults() Templates {
	return Templates{
		Initial:      defaultInitial,
		Continuation: defaultContinuation,
	}
}

// compiled is a parsed Templates.
type compiled struct {
	raw          Templates
	initial      *template.Template
	continuation *template.Template
}

func compile(t Templates) (*compiled, error) {
	defaults := Defaults()
	if t.Initial == "" {
		t.Initial = defaults.Initial
	}
	if t.Continuation == "" {
		t.Continuation = defaults.Continuation
	}

	initial, err := template.New("initial").Option("missingkey=error").Parse(t.Initial)
	if err != nil {
		return nil, fmt.Errorf("parsing initial template: %w", err)
	}
	continuation, err := template.New("continuation").Option("missingkey=error").Parse(t.Continuation)
	if err != nil {
		return nil, fmt.Errorf("parsing continuation template: %w", err)
	}

	return &compiled{
		raw:          t,
		initial:      initial,
		continuation: continuation,
	}, nil
}

// render picks the continuation template when previous is non-nil.
func (c *compiled) render(previous *string, batch []transcript.Fragment) (string, error) {
	data := Data{Transcript: transcript.Lines(batch)}
	tpl := c.initial
	if previous != nil {
		data.Summary = *previous
		tpl = c.continuation
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}
