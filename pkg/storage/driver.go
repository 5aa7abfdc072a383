// Package storage defines the durable append contract for transcript segments
// and summary snapshots.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Segment is a persisted transcript fragment.
type Segment struct {
	ID int64 `json:"id"`
	transcript.Fragment
	CreatedAt time.Time `json:"created_at"`
}

// SummaryRecord is a persisted summary snapshot.
type SummaryRecord struct {
	ID        int64     `json:"id"`
	Text      string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Driver persists fragments and summaries for a storage backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Append persists one fragment.
	Append(ctx context.Context, f transcript.Fragment) error

	// AppendSummary persists one summary snapshot.
	AppendSummary(ctx context.Context, text string) error

	// Segments returns the most recent limit segments, oldest first.
	// A limit <= 0 returns every segment.
	Segments(ctx context.Context, limit int) ([]Segment, error)

	// Summaries returns the most recent limit summaries, oldest first.
	// A limit <= 0 returns every summary.
	Summaries(ctx context.Context, limit int) ([]SummaryRecord, error)

	// LatestSummary returns the newest summary or ErrNotFound.
	LatestSummary(ctx context.Context) (*SummaryRecord, error)

	// Close closes the store and releases any resources.
	Close() error
}
