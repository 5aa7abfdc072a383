// Package inmemory provides a process-local storage.Driver.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Driver implements storage.Driver using in-memory slices.
type Driver struct {
	// mu is a read write sync mutex guarding segments and summaries
	mu sync.RWMutex

	segments  []storage.Segment
	summaries []storage.SummaryRecord
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{}
}

// Append stores a fragment.
func (d *Driver) Append(_ context.Context, f transcript.Fragment) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.segments = append(d.segments, storage.Segment{
		ID:        int64(len(d.segments) + 1),
		Fragment:  f,
		CreatedAt: time.Now(),
	})
	return nil
}

// AppendSummary stores a summary snapshot.
func (d *Driver) AppendSummary(_ context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.summaries = append(d.summaries, storage.SummaryRecord{
		ID:        int64(len(d.summaries) + 1),
		Text:      text,
		CreatedAt: time.Now(),
	})
	return nil
}

// Segments returns the most recent limit segments, oldest first.
func (d *Driver) Segments(_ context.Context, limit int) ([]storage.Segment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return tail(d.segments, limit), nil
}

// Summaries returns the most recent limit summaries, oldest first.
func (d *Driver) Summaries(_ context.Context, limit int) ([]storage.SummaryRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return tail(d.summaries, limit), nil
}

// LatestSummary returns the newest summary.
func (d *Driver) LatestSummary(_ context.Context) (*storage.SummaryRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.summaries) == 0 {
		return nil, storage.ErrNotFound
	}
	latest := d.summaries[len(d.summaries)-1]
	return &latest, nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

// tail copies the last limit items so callers never alias the store.
func tail[T any](items []T, limit int) []T {
	start := 0
	if limit > 0 && len(items) > limit {
		start = len(items) - limit
	}
	out := make([]T, len(items)-start)
	copy(out, items[start:])
	return out
}
