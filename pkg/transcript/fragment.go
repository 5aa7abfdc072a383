// Package transcript defines the speech fragment value that flows through the
// minutes pipeline and how fragments are rendered into transcript lines.
package transcript

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSpeaker is the label rendered for fragments without a speaker.
const DefaultSpeaker = "Speaker"

// lineTimeLayout renders the wall clock of a fragment as HH:MM:SS.
const lineTimeLayout = "15:04:05"

// Fragment is one timestamped unit of transcribed speech.
// Fragments are values: once created they are never mutated, and copies are
// handed between producers, the bus, storage, and subscribers.
type Fragment struct {
	// Timestamp is when the fragment was spoken (or captioned).
	Timestamp time.Time `json:"timestamp"`

	// Text is the transcribed speech.
	Text string `json:"text"`

	// Speaker is the optional speaker label. A nil Speaker is encoded as JSON null.
	Speaker *string `json:"speaker"`
}

// New creates a Fragment. An empty speaker is treated as unknown.
func New(ts time.Time, speaker, text string) Fragment {
	f := Fragment{
		Timestamp: ts,
		Text:      text,
	}
	if s := strings.TrimSpace(speaker); s != "" {
		f.Speaker = &s
	}
	return f
}

// SpeakerName returns the speaker label, or DefaultSpeaker when unknown.
func (f Fragment) SpeakerName() string {
	if f.Speaker == nil || *f.Speaker == "" {
		return DefaultSpeaker
	}
	return *f.Speaker
}

// Line renders the fragment as "[HH:MM:SS] <speaker>: <text>" using the
// local wall clock, whatever location the timestamp was recorded in.
func (f Fragment) Line() string {
	return fmt.Sprintf("[%s] %s: %s", f.Timestamp.Local().Format(lineTimeLayout), f.SpeakerName(), f.Text)
}

// Lines renders fragments in order, one per line.
func Lines(fragments []Fragment) string {
	var b strings.Builder
	for i, f := range fragments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Line())
	}
	return b.String()
}

// ParseLine parses a caption line of the form "Speaker: text" or plain "text".
// A speaker prefix is only recognized when it is short and has no sentence
// punctuation, so "Note: revenue is up" style text keeps working reasonably.
// Blank lines return ok=false.
func ParseLine(ts time.Time, line string) (Fragment, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Fragment{}, false
	}

	if idx := strings.Index(line, ":"); idx > 0 && idx <= 40 {
		speaker := strings.TrimSpace(line[:idx])
		text := strings.TrimSpace(line[idx+1:])
		if text != "" && !strings.ContainsAny(speaker, ".!?[]") {
			return New(ts, speaker, text), true
		}
	}

	return New(ts, "", line), true
}
