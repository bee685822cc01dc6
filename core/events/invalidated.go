package events

import "github.com/kilianp07/lineauction/core/model"

// Reasons carried by AssignmentsInvalidated.
const (
	ReasonBreakdown = "breakdown"
	ReasonTransfer  = "transfer"
)

// AssignmentsInvalidated tells the auction core that a pool lost an assigned
// vehicle and must be resolved again.
type AssignmentsInvalidated struct {
	Line   string
	Frame  model.Frame
	Plate  string
	Reason string
}

// Pool returns the affected pool.
func (e AssignmentsInvalidated) Pool() model.PoolKey {
	return model.PoolKey{Line: e.Line, Frame: e.Frame}
}
