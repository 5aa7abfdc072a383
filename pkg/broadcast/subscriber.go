package broadcast

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrSubscriberSlow is returned when a subscriber's outbox is full.
	ErrSubscriberSlow = errors.New("subscriber outbox full")

	// ErrSubscriberClosed is returned after a subscriber's connection died.
	ErrSubscriberClosed = errors.New("subscriber closed")
)

// DefaultOutboxSize is the number of pending messages a subscriber may hold.
const DefaultOutboxSize = 64

// Subscriber receives serialized events. Send must not block; a non-nil error
// removes the subscriber from the hub.
type Subscriber interface {
	ID() string
	Send(data []byte) error
}

// FuncSubscriber adapts a function to Subscriber.
type FuncSubscriber struct {
	id string
	fn func([]byte) error
}

// NewFuncSubscriber wraps fn with a generated id.
func NewFuncSubscriber(fn func([]byte) error) *FuncSubscriber {
	return &FuncSubscriber{id: uuid.NewString(), fn: fn}
}

// ID returns the subscriber id.
func (s *FuncSubscriber) ID() string { return s.id }

// Send calls the wrapped function.
func (s *FuncSubscriber) Send(data []byte) error { return s.fn(data) }

// outbox is the bounded, non-blocking queue shared by the transport
// subscribers. One writer goroutine drains it.
type outbox struct {
	id   string
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &outbox{
		id:   uuid.NewString(),
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
	}
}

func (o *outbox) ID() string { return o.id }

func (o *outbox) Send(data []byte) error {
	select {
	case <-o.done:
		return ErrSubscriberClosed
	default:
	}

	select {
	case o.ch <- data:
		return nil
	default:
		return ErrSubscriberSlow
	}
}

// shut marks the outbox closed and reports whether this call did it.
func (o *outbox) shut() bool {
	closed := false
	o.once.Do(func() {
		close(o.done)
		closed = true
	})
	return closed
}

// Pending returns the number of messages queued and not yet written.
func (o *outbox) Pending() int {
	return len(o.ch)
}
