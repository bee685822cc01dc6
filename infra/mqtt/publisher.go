package mqtt

import (
	"fmt"
	"sync"

	"github.com/kilianp07/lineauction/core/events"
	coremqtt "github.com/kilianp07/lineauction/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher records outcomes in memory. It is used by tests and when
// MQTT is disabled in development.
type MockPublisher struct {
	Outcomes  []events.Outcome
	FailLines map[string]bool
	mu        sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailLines: make(map[string]bool)}
}

// PublishOutcome records o or fails when its line is configured to fail.
func (m *MockPublisher) PublishOutcome(o events.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLines[o.Pool.Line] {
		return fmt.Errorf("publish failed")
	}
	m.Outcomes = append(m.Outcomes, o)
	return nil
}

// Published returns a copy of the recorded outcomes.
func (m *MockPublisher) Published() []events.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Outcome(nil), m.Outcomes...)
}
