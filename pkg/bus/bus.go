// Package bus provides the ordered hand-off channel between fragment producers
// and the single summarizing consumer.
package bus

import (
	"context"
	"sync"

	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Bus is an unbounded FIFO of transcript fragments.
//
// Any number of producers may call Put concurrently. Get is intended for a
// single logical consumer; multiple consumers are not prevented, but the
// ordering guarantee only holds for one.
type Bus struct {
	mu    sync.Mutex
	items []transcript.Fragment

	// ready holds at most one token and signals that items became non-empty.
	ready chan struct{}
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		ready: make(chan struct{}, 1),
	}
}

// Put appends a fragment at the tail. It never rejects and never blocks
// beyond the internal mutex.
func (b *Bus) Put(f transcript.Fragment) {
	b.mu.Lock()
	b.items = append(b.items, f)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// Get removes and returns the oldest fragment, waiting until one is available
// or ctx is done. On cancellation or deadline it returns ctx.Err().
func (b *Bus) Get(ctx context.Context) (transcript.Fragment, error) {
	for {
		if f, ok := b.pop(); ok {
			return f, nil
		}

		select {
		case <-ctx.Done():
			return transcript.Fragment{}, ctx.Err()
		case <-b.ready:
		}
	}
}

// Len returns the number of fragments waiting to be consumed.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Bus) pop() (transcript.Fragment, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return transcript.Fragment{}, false
	}

	f := b.items[0]
	b.items[0] = transcript.Fragment{}
	b.items = b.items[1:]
	if len(b.items) == 0 {
		// release the backing array once drained
		b.items = nil
	} else {
		// more remain: keep the wakeup token available for the next Get
		select {
		case b.ready <- struct{}{}:
		default:
		}
	}

	return f, true
}
