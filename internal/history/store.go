// Package history keeps a record of compile runs.
package history

import (
	"context"
	"time"
)

// Record summarizes one finished compile.
type Record struct {
	RunID       string
	Target      string
	Program     string
	Strategy    string
	Succeeded   bool
	Failure     string
	ExitStatus  int
	Diagnostics map[string]int // entry counts keyed by entry type
	PDFPath     string
	StartedAt   time.Time
	Duration    time.Duration
}

// Store persists compile records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// NoopStore discards records.
type NoopStore struct{}

func (NoopStore) Append(context.Context, Record) error          { return nil }
func (NoopStore) Recent(context.Context, int) ([]Record, error) { return nil, nil }
func (NoopStore) Close() error                                  { return nil }
