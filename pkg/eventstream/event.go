package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSummaryProduced is emitted after the summarizer produces a new
	// rolling summary.
	EventTypeSummaryProduced = "minutes.summary.produced"
)

// SummaryEvent is a transport-neutral event payload for a produced summary.
type SummaryEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	// Meeting identifies the meeting the summary belongs to. It is also the
	// partition key on keyed transports.
	Meeting string `json:"meeting"`

	Summary    string `json:"summary"`
	Model      string `json:"model,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
	Fragments  int    `json:"fragment_count"`
}

// NewSummaryEvent stamps a new event with a fresh id.
func NewSummaryEvent(meeting, summary, model string, fragments int, at time.Time) *SummaryEvent {
	return &SummaryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSummaryProduced,
		EventID:       uuid.NewString(),
		EmittedAt:     at.UTC(),
		Meeting:       meeting,
		Summary:       summary,
		Model:         model,
		Fragments:     fragments,
	}
}
