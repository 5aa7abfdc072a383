package broadcast

import (
	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Event types carried in the "type" field of every envelope.
const (
	TypeSegment         = "segment"
	TypeSummary         = "summary"
	TypeModelChanged    = "model_changed"
	TypeSummarizerState = "summarizer_state"
	TypePromptChanged   = "prompt_changed"
)

// Event is the JSON envelope pushed to subscribers. Only the field matching
// Type is set.
type Event struct {
	Type    string               `json:"type"`
	Segment *transcript.Fragment `json:"segment,omitempty"`
	Summary *string              `json:"summary,omitempty"`
	Model   *string              `json:"model,omitempty"`
	Running *bool                `json:"running,omitempty"`
}

// SegmentEvent announces a newly ingested fragment.
func SegmentEvent(f transcript.Fragment) Event {
	return Event{Type: TypeSegment, Segment: &f}
}

// SummaryEvent announces a new rolling summary.
func SummaryEvent(text string) Event {
	return Event{Type: TypeSummary, Summary: &text}
}

// ModelChangedEvent announces that the summarizer switched models.
func ModelChangedEvent(model string) Event {
	return Event{Type: TypeModelChanged, Model: &model}
}

// SummarizerStateEvent announces a Running/Paused transition.
func SummarizerStateEvent(running bool) Event {
	return Event{Type: TypeSummarizerState, Running: &running}
}

// PromptChangedEvent announces that prompt templates were reloaded.
func PromptChangedEvent() Event {
	return Event{Type: TypePromptChanged}
}
