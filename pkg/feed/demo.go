package feed

import (
	"context"
	"time"

	"github.com/papercomputeco/minutes/pkg/transcript"
)

// DefaultDemoInterval is the pause between scripted lines.
const DefaultDemoInterval = 3 * time.Second

// Line is one scripted utterance.
type Line struct {
	Speaker string
	Text    string
}

// DefaultScript is a short quarterly review meeting.
var DefaultScript = []Line{
	{"Alice", "Let's start by reviewing the Q4 results."},
	{"Bob", "Revenue is up 15%."},
	{"Bob", "Most of the growth came from the enterprise tier."},
	{"Carol", "Churn is flat, but support tickets doubled after the December release."},
	{"Alice", "Can we get a breakdown of those tickets by product area?"},
	{"Carol", "Yes, I'll have it ready by Friday."},
	{"Bob", "We should also revisit the pricing page before the next campaign."},
	{"Alice", "Agreed. Bob, please draft a proposal for next week."},
	{"Alice", "Anything else? Then let's wrap up."},
}

// Demo emits a scripted meeting at a fixed cadence.
type Demo struct {
	Script   []Line
	Interval time.Duration

	// Repeat restarts the script after the last line.
	Repeat bool

	// Now stamps each fragment. Defaults to time.Now.
	Now func() time.Time
}

// Run puts one line per interval into out, starting immediately. It returns
// nil after the last line unless Repeat is set, or ctx.Err() when cancelled.
func (d *Demo) Run(ctx context.Context, out Putter) error {
	script := d.Script
	if len(script) == 0 {
		script = DefaultScript
	}
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultDemoInterval
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i == len(script) {
			if !d.Repeat {
				return nil
			}
			i = 0
		}

		line := script[i]
		out.Put(transcript.New(now(), line.Speaker, line.Text))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
