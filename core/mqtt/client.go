package mqtt

import "github.com/kilianp07/lineauction/core/events"

// Publisher forwards auction outcomes to a message broker.
type Publisher interface {
	// PublishOutcome sends the outcome of one pool resolution. The
	// message is retained so late subscribers see the current winner.
	PublishOutcome(o events.Outcome) error
}
