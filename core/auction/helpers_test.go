package auction

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/bidcap"
	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
	"github.com/kilianp07/lineauction/infra/store/memory"
)

var testLine = model.Line{Name: "L1", ProviderGarageID: 1, GarageTravel: 10, LineTravel: 30}

type env struct {
	t        *testing.T
	store    store.Store
	resolver *Resolver
	frames   model.FrameTable
	next     map[string]int
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	s := memory.New()
	var vehicles []model.Vehicle
	for _, owner := range []string{"alice", "bob", "carol"} {
		for i := 0; i < 20; i++ {
			vehicles = append(vehicles, model.Vehicle{
				Plate: fmt.Sprintf("%s-%02d", owner, i), Owner: owner, GarageID: 1, Status: model.VehicleReady,
			})
		}
	}
	require.NoError(t, store.Seed(context.Background(), s, store.Fixtures{
		Lines:    []model.Line{testLine},
		Vehicles: vehicles,
	}))
	frames := model.DefaultFrames()
	r := NewResolver(s, bidcap.New(bidcap.DefaultParams(), frames), duty.NewPlanner(duty.DefaultRules()), opts...)
	return &env{t: t, store: s, resolver: r, frames: frames, next: map[string]int{}}
}

// addSchedule inserts a pending schedule in frame and assigns `assign`
// vehicles; a negative value assigns every required block.
func (e *env) addSchedule(owner string, frame model.Frame, freq int, bid int64, assign int) model.Schedule {
	e.t.Helper()
	spec, ok := e.frames.Lookup(frame)
	require.True(e.t, ok)
	s := model.Schedule{
		Owner: owner, LineName: testLine.Name, GarageID: 1, Frame: frame,
		Start: spec.Start, End: spec.End, Frequency: freq, BidPrice: bid, Status: model.StatusPending,
	}
	if assign < 0 {
		assign = e.required(s)
	}
	ctx := context.Background()
	require.NoError(e.t, e.store.Tx(ctx, func(tx store.Tx) error {
		id, err := tx.InsertSchedule(ctx, s)
		if err != nil {
			return err
		}
		s.ID = id
		as := make([]model.Assignment, assign)
		for i := range as {
			as[i] = model.Assignment{Block: i, Plate: fmt.Sprintf("%s-%02d", owner, e.next[owner])}
			e.next[owner]++
		}
		return tx.ReplaceAssignments(ctx, id, as)
	}))
	return s
}

func (e *env) required(s model.Schedule) int {
	e.t.Helper()
	plan, err := e.resolver.Checker().Planner.PlanSchedule(s, testLine)
	require.NoError(e.t, err)
	return len(plan.Duties)
}

func (e *env) status(id int64) model.ScheduleStatus {
	e.t.Helper()
	var st model.ScheduleStatus
	require.NoError(e.t, e.store.Tx(context.Background(), func(tx store.Tx) error {
		s, err := tx.Schedule(context.Background(), id)
		st = s.Status
		return err
	}))
	return st
}

func (e *env) resolve(frame model.Frame) (int64, bool) {
	e.t.Helper()
	id, ok, err := e.resolver.Resolve(context.Background(), testLine.Name, frame)
	require.NoError(e.t, err)
	return id, ok
}
