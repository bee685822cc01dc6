package metrics

import (
	"time"

	"github.com/kilianp07/lineauction/core/events"
	"github.com/kilianp07/lineauction/core/model"
)

// PayoutRecord describes one credit made by the payout ticker.
type PayoutRecord struct {
	ScheduleID int64
	Owner      string
	Pool       model.PoolKey
	Tick       int
	Amount     int64
	Vehicles   int
	DistanceKM int64
	Time       time.Time
}

// Sink records auction activity for observability.
type Sink interface {
	RecordOutcome(o events.Outcome) error
	RecordPayout(p PayoutRecord) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordOutcome(events.Outcome) error { return nil }
func (NopSink) RecordPayout(PayoutRecord) error    { return nil }

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOutcome forwards to every sink and returns the first error. A
// failing sink does not prevent the others from receiving the record.
func (m *MultiSink) RecordOutcome(o events.Outcome) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordOutcome(o); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordPayout forwards to every sink and returns the first error.
func (m *MultiSink) RecordPayout(p PayoutRecord) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordPayout(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}
