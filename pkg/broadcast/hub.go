// Package broadcast fans serialized events out to a dynamic set of live
// subscribers. A failing subscriber is dropped without affecting the others.
package broadcast

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/papercomputeco/minutes/pkg/summary"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Hub is a registry of subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]Subscriber
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]Subscriber),
		logger: logger,
	}
}

// Register adds sub. It is safe to call during a broadcast pass; the new
// subscriber receives events from the next pass on.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	h.subs[sub.ID()] = sub
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("subscriber registered", "subscriber_id", sub.ID(), "subscriber_count", n)
}

// Unregister removes the subscriber with id, if present.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.logger.Debug("subscriber unregistered", "subscriber_id", id, "subscriber_count", n)
	}
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast serializes ev once and delivers it to every subscriber. It returns
// the number of successful deliveries. Errors never reach the caller.
func (h *Hub) Broadcast(ev Event) int {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("could not encode broadcast event", "type", ev.Type, "error", err)
		return 0
	}
	return h.BroadcastRaw(data)
}

// BroadcastRaw delivers pre-serialized data to every subscriber.
func (h *Hub) BroadcastRaw(data []byte) int {
	h.mu.RLock()
	snapshot := make([]Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	var (
		delivered int
		failed    []Subscriber
	)
	for _, sub := range snapshot {
		if err := sub.Send(data); err != nil {
			attrs := []any{"subscriber_id", sub.ID(), "error", err}
			if q, ok := sub.(interface{ Pending() int }); ok {
				attrs = append(attrs, "pending", q.Pending())
			}
			h.logger.Warn("dropping subscriber", attrs...)
			failed = append(failed, sub)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, sub := range failed {
			// a re-registration under the same id replaced this instance
			if h.subs[sub.ID()] == sub {
				delete(h.subs, sub.ID())
			}
		}
		h.mu.Unlock()

		for _, sub := range failed {
			if c, ok := sub.(io.Closer); ok {
				_ = c.Close()
			}
		}
	}

	return delivered
}

// OnSummary broadcasts a summary event.
func (h *Hub) OnSummary(_ context.Context, r summary.Result) {
	h.Broadcast(SummaryEvent(r.Text))
}

// OnFragment broadcasts a segment event.
func (h *Hub) OnFragment(_ context.Context, f transcript.Fragment) {
	h.Broadcast(SegmentEvent(f))
}

var (
	_ summary.Sink         = (*Hub)(nil)
	_ summary.FragmentSink = (*Hub)(nil)
)
