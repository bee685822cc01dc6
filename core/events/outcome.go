package events

import (
	"time"

	"github.com/kilianp07/lineauction/core/model"
)

// Outcome is emitted after a pool resolution commits.
type Outcome struct {
	TraceID string        `json:"trace_id"`
	Pool    model.PoolKey `json:"pool"`
	// WinnerID is zero when no schedule was eligible.
	WinnerID   int64         `json:"winner_id,omitempty"`
	Candidates int           `json:"candidates"`
	Eligible   int           `json:"eligible"`
	Trigger    string        `json:"trigger"`
	Duration   time.Duration `json:"duration_ns"`
	At         time.Time     `json:"at"`
}

// HasWinner reports whether the pool has an active schedule.
func (o Outcome) HasWinner() bool { return o.WinnerID != 0 }
