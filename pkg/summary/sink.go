package summary

import (
	"context"
	"time"

	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Result is one successful summarization.
type Result struct {
	Text       string
	Model      string
	TokensUsed int
	Fragments  int
	At         time.Time
}

// Sink receives every new rolling summary. Implementations must not block the
// loop for long and must handle their own errors.
type Sink interface {
	OnSummary(ctx context.Context, r Result)
}

// FragmentSink receives every fragment after it was persisted.
type FragmentSink interface {
	OnFragment(ctx context.Context, f transcript.Fragment)
}

// NopSink discards summaries and fragments.
type NopSink struct{}

// OnSummary does nothing.
func (NopSink) OnSummary(context.Context, Result) {}

// OnFragment does nothing.
func (NopSink) OnFragment(context.Context, transcript.Fragment) {}

// MultiSink forwards each summary to every sink in order.
type MultiSink []Sink

// OnSummary forwards r to every sink.
func (m MultiSink) OnSummary(ctx context.Context, r Result) {
	for _, s := range m {
		s.OnSummary(ctx, r)
	}
}
