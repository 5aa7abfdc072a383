package broadcast

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"github.com/papercomputeco/minutes/pkg/sse"
)

// keepAlivePeriod is how often an idle SSE stream writes a comment, which is
// also how a vanished client is noticed.
const keepAlivePeriod = 15 * time.Second

// StreamSubscriber delivers events as Server-Sent Events.
type StreamSubscriber struct {
	*outbox
}

// NewStreamSubscriber creates a subscriber with an outbox of size messages
// (0 for the default).
func NewStreamSubscriber(size int) *StreamSubscriber {
	return &StreamSubscriber{outbox: newOutbox(size)}
}

// Run writes queued events to w until ctx is done, a write or flush fails, or
// Close is called.
func (s *StreamSubscriber) Run(ctx context.Context, w *bufio.Writer) error {
	defer s.Close()

	if err := sse.WriteComment(w, "connected"); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.done:
			return nil

		case msg := <-s.ch:
			if err := sse.WriteEvent(w, sse.Event{Type: eventType(msg), Data: string(msg)}); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}

		case <-ticker.C:
			if err := sse.WriteComment(w, "keep-alive"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

// Close marks the subscriber closed.
func (s *StreamSubscriber) Close() error {
	s.shut()
	return nil
}

// eventType extracts the envelope type for the SSE "event:" field.
func eventType(msg []byte) string {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		return ""
	}
	return env.Type
}
