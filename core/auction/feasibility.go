package auction

import (
	"context"
	"errors"

	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
)

// Feasibility compares the blocks a schedule needs with the blocks it has.
type Feasibility struct {
	Required int `json:"required"`
	Assigned int `json:"assigned"`
}

// Feasible reports whether every required block is assigned.
func (f Feasibility) Feasible() bool {
	return f.Required > 0 && f.Assigned == f.Required
}

// Checker derives required blocks from the duty planner.
type Checker struct {
	Planner duty.Planner
}

// Check plans s on l and compares the duty count with assigned. A schedule
// that cannot be planned requires zero blocks and is never feasible.
func (c Checker) Check(s model.Schedule, l model.Line, assigned int) Feasibility {
	f := Feasibility{Assigned: assigned}
	plan, err := c.Planner.PlanSchedule(s, l)
	if err != nil {
		return f
	}
	f.Required = len(plan.Duties)
	return f
}

// CheckTx loads the line and assignments of s from tx and runs Check.
func (c Checker) CheckTx(ctx context.Context, tx store.Tx, s model.Schedule) (Feasibility, error) {
	l, err := tx.Line(ctx, s.LineName)
	if errors.Is(err, store.ErrNotFound) {
		return Feasibility{}, nil
	}
	if err != nil {
		return Feasibility{}, err
	}
	as, err := tx.Assignments(ctx, s.ID)
	if err != nil {
		return Feasibility{}, err
	}
	return c.Check(s, l, len(as)), nil
}
