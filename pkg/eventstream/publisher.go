// Package eventstream publishes summary events to downstream consumers.
package eventstream

import "context"

// Publisher publishes summary events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *SummaryEvent) error
	Close() error
}
