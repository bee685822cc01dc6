// Package journal keeps an append-only record of pool resolutions.
package journal

import (
	"context"
	"time"

	"github.com/kilianp07/lineauction/core/model"
)

// Candidate is one schedule as seen by a resolution.
type Candidate struct {
	ScheduleID int64                `json:"schedule_id"`
	Owner      string               `json:"owner"`
	Frequency  int                  `json:"frequency"`
	BidPrice   int64                `json:"bid_price"`
	Cap        float64              `json:"cap"`
	Required   int                  `json:"required_blocks"`
	Assigned   int                  `json:"assigned_blocks"`
	Eligible   bool                 `json:"eligible"`
	Status     model.ScheduleStatus `json:"status"`
}

// Record captures one resolution.
type Record struct {
	TraceID    string        `json:"trace_id"`
	Timestamp  time.Time     `json:"timestamp"`
	Pool       model.PoolKey `json:"pool"`
	Trigger    string        `json:"trigger"`
	WinnerID   int64         `json:"winner_id"`
	Candidates []Candidate   `json:"candidates"`
}

// Query filters records. Zero values match everything.
type Query struct {
	Start time.Time
	End   time.Time
	Line  string
	Frame model.Frame
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Line != "" && r.Pool.Line != q.Line {
		return false
	}
	if q.Frame != "" && r.Pool.Frame != q.Frame {
		return false
	}
	return true
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Nop discards records.
type Nop struct{}

func (Nop) Append(context.Context, Record) error          { return nil }
func (Nop) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (Nop) Close() error                                   { return nil }
