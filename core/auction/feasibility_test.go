package auction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
)

func TestFeasibility(t *testing.T) {
	assert.False(t, Feasibility{}.Feasible())
	assert.False(t, Feasibility{Required: 3, Assigned: 2}.Feasible())
	assert.True(t, Feasibility{Required: 3, Assigned: 3}.Feasible())
}

func TestCheckerCheck(t *testing.T) {
	c := Checker{Planner: duty.NewPlanner(duty.DefaultRules())}
	s := model.Schedule{Start: model.MustClock("08:00"), End: model.MustClock("12:00"), Frequency: 60}
	f := c.Check(s, testLine, 0)
	assert.Positive(t, f.Required)
	assert.False(t, f.Feasible())

	s.Frequency = 0
	assert.Zero(t, c.Check(s, testLine, 4).Required)
}

func TestCheckerCheckTxMissingLine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Tx(ctx, func(tx store.Tx) error {
		f, err := e.resolver.Checker().CheckTx(ctx, tx, model.Schedule{LineName: "nope", Frequency: 10})
		assert.Equal(t, Feasibility{}, f)
		return err
	}))
}
