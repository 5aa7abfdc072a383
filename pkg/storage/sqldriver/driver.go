// Package sqldriver implements storage.Driver over database/sql. It is shared
// by the sqlite and postgres drivers, which only differ in dialect.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	// Name identifies the dialect in errors.
	Name string

	// Schema is executed on open; statements must be idempotent.
	Schema []string

	// Numbered rewrites "?" placeholders as "$1", "$2", ...
	Numbered bool
}

// Driver implements storage.Driver on a *sql.DB.
type Driver struct {
	DB      *sql.DB
	dialect Dialect
}

// New migrates db with the dialect schema and returns a Driver.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create %s schema: %w", dialect.Name, err)
		}
	}

	return &Driver{
		DB:      db,
		dialect: dialect,
	}, nil
}

// Append stores a fragment.
func (d *Driver) Append(ctx context.Context, f transcript.Fragment) error {
	var speaker sql.NullString
	if f.Speaker != nil {
		speaker = sql.NullString{String: *f.Speaker, Valid: true}
	}

	_, err := d.DB.ExecContext(ctx,
		d.rebind("INSERT INTO segments (spoken_at, speaker, text, created_at) VALUES (?, ?, ?, ?)"),
		f.Timestamp.UTC(), speaker, f.Text, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting segment: %w", err)
	}
	return nil
}

// AppendSummary stores a summary snapshot.
func (d *Driver) AppendSummary(ctx context.Context, text string) error {
	_, err := d.DB.ExecContext(ctx,
		d.rebind("INSERT INTO summaries (summary, created_at) VALUES (?, ?)"),
		text, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting summary: %w", err)
	}
	return nil
}

// Segments returns the most recent limit segments, oldest first.
func (d *Driver) Segments(ctx context.Context, limit int) ([]storage.Segment, error) {
	query := "SELECT id, spoken_at, speaker, text, created_at FROM segments ORDER BY id DESC"
	rows, err := d.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying segments: %w", err)
	}
	defer rows.Close()

	var out []storage.Segment
	for rows.Next() {
		var (
			seg     storage.Segment
			speaker sql.NullString
		)
		if err := rows.Scan(&seg.ID, &seg.Timestamp, &speaker, &seg.Text, &seg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning segment: %w", err)
		}
		if speaker.Valid {
			s := speaker.String
			seg.Speaker = &s
		}
		seg.Timestamp = seg.Timestamp.Local()
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating segments: %w", err)
	}

	reverse(out)
	return out, nil
}

// Summaries returns the most recent limit summaries, oldest first.
func (d *Driver) Summaries(ctx context.Context, limit int) ([]storage.SummaryRecord, error) {
	query := "SELECT id, summary, created_at FROM summaries ORDER BY id DESC"
	rows, err := d.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var out []storage.SummaryRecord
	for rows.Next() {
		var rec storage.SummaryRecord
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}

	reverse(out)
	return out, nil
}

// LatestSummary returns the newest summary.
func (d *Driver) LatestSummary(ctx context.Context) (*storage.SummaryRecord, error) {
	var rec storage.SummaryRecord
	err := d.DB.QueryRowContext(ctx,
		"SELECT id, summary, created_at FROM summaries ORDER BY id DESC LIMIT 1",
	).Scan(&rec.ID, &rec.Text, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest summary: %w", err)
	}
	return &rec, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

func (d *Driver) query(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	if limit > 0 {
		return d.DB.QueryContext(ctx, d.rebind(query+" LIMIT ?"), limit)
	}
	return d.DB.QueryContext(ctx, query)
}

func (d *Driver) rebind(query string) string {
	if !d.dialect.Numbered {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
