package scenarios

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/auction"
	"github.com/kilianp07/lineauction/core/bidcap"
	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/failure"
	"github.com/kilianp07/lineauction/core/fleet"
	"github.com/kilianp07/lineauction/core/logger"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/payout"
	"github.com/kilianp07/lineauction/core/schedule"
	"github.com/kilianp07/lineauction/core/store"
	"github.com/kilianp07/lineauction/infra/store/memory"
)

type runner struct {
	t         *testing.T
	sc        *Scenario
	store     store.Store
	schedules *schedule.Service
	fleet     *fleet.Service
	payout    *payout.Ticker
	refs      map[string]int64
}

// RunScenario seeds a fresh memory store with the scenario fixtures, plays
// every step and checks the expected state.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, store.Seed(ctx, st, sc.Fixtures))

	frames := model.DefaultFrames()
	caps := bidcap.New(bidcap.DefaultParams(), frames)
	planner := duty.NewPlanner(duty.DefaultRules())
	resolver := auction.NewResolver(st, caps, planner)
	ticker, err := payout.NewTicker(st, frames, payout.Config{Timezone: "UTC"})
	require.NoError(t, err)

	r := &runner{
		t:         t,
		sc:        sc,
		store:     st,
		schedules: schedule.New(st, resolver, schedule.WithFrames(frames), schedule.WithCaps(caps), schedule.WithPlanner(planner)),
		fleet:     fleet.New(st, auction.NewCascade(resolver, logger.Nop{}), logger.Nop{}),
		payout:    ticker,
		refs:      map[string]int64{},
	}
	for i, s := range sc.Steps {
		err := r.step(ctx, s)
		if s.Error == "" {
			require.NoError(t, err, "step %d (%s)", i, s.Op)
			continue
		}
		require.Error(t, err, "step %d (%s) should fail", i, s.Op)
		assert.Equal(t, s.Error, failure.KindOf(err).String(), "step %d (%s): %v", i, s.Op, err)
	}
	r.check(ctx)
}

func (r *runner) step(ctx context.Context, s Step) error {
	switch s.Op {
	case "create":
		sch, err := r.schedules.Create(ctx, s.As, schedule.CreateRequest{
			LineName: s.Line, Frame: model.Frame(s.Frame), Frequency: s.Frequency, BidPrice: s.Bid,
		})
		if sch.ID != 0 && s.Ref != "" {
			r.refs[s.Ref] = sch.ID
		}
		return err
	case "assign":
		blocks, err := r.blocks(ctx, s)
		if err != nil {
			return err
		}
		return r.schedules.SaveManualAssignments(ctx, r.ref(s.Ref), s.As, blocks)
	case "frequency":
		_, err := r.schedules.UpdateFrequency(ctx, r.ref(s.Ref), s.Frequency)
		return err
	case "delete":
		return r.schedules.Delete(ctx, r.ref(s.Ref), s.As)
	case "breakdown":
		_, err := r.fleet.ReportBreakdown(ctx, s.Plate)
		return err
	case "repair":
		return r.fleet.Repair(ctx, s.Plate)
	case "transfer":
		_, err := r.fleet.Transfer(ctx, fleet.TransferRequest{
			Plate: s.Plate, Seller: s.As, Buyer: s.Buyer, GarageID: s.Garage, Price: s.Price,
		})
		return err
	case "payout":
		at, err := time.Parse(time.RFC3339, s.At)
		if err != nil {
			return err
		}
		_, err = r.payout.RunTick(ctx, at)
		return err
	default:
		r.t.Fatalf("unknown op %q", s.Op)
		return nil
	}
}

func (r *runner) ref(name string) int64 {
	id, ok := r.refs[name]
	require.True(r.t, ok, "unknown schedule ref %q", name)
	return id
}

// blocks maps the required blocks of the schedule onto the step plates, or
// onto the owner's assignable vehicles in the line garage when none are
// given.
func (r *runner) blocks(ctx context.Context, s Step) (map[int]string, error) {
	id := r.ref(s.Ref)
	plan, err := r.schedules.PlanDuties(ctx, id)
	if err != nil {
		return nil, err
	}
	n := len(plan.Duties)
	if s.Count > 0 {
		n = min(n, s.Count)
	}
	plates := s.Plates
	if len(plates) == 0 {
		plates, err = r.assignable(ctx, s.As, id)
		if err != nil {
			return nil, err
		}
	}
	out := make(map[int]string, n)
	for i := 0; i < n && i < len(plates); i++ {
		out[i] = plates[i]
	}
	return out, nil
}

func (r *runner) assignable(ctx context.Context, owner string, id int64) ([]string, error) {
	sch, err := r.schedules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var plates []string
	err = r.store.Tx(ctx, func(tx store.Tx) error {
		for _, f := range r.sc.Fixtures.Vehicles {
			v, err := tx.Vehicle(ctx, f.Plate)
			if err != nil {
				return err
			}
			if v.Owner == owner && v.GarageID == sch.GarageID && v.Assignable() {
				plates = append(plates, v.Plate)
			}
		}
		return nil
	})
	sort.Strings(plates)
	return plates, err
}

func (r *runner) check(ctx context.Context) {
	t := r.t
	exp := r.sc.Expected
	for ref, want := range exp.Statuses {
		s, err := r.schedules.Get(ctx, r.ref(ref))
		if want == "deleted" {
			assert.Equal(t, "not_found", failure.KindOf(err).String(), "schedule %s", ref)
			continue
		}
		require.NoError(t, err, "schedule %s", ref)
		assert.Equal(t, want, s.Status, "schedule %s", ref)
	}

	winners, err := r.schedules.Winners(ctx)
	require.NoError(t, err)
	byPool := map[string]int64{}
	for _, w := range winners {
		byPool[w.Pool().String()] = w.ID
	}
	for pool, ref := range exp.Winners {
		if ref == "" {
			assert.NotContains(t, byPool, pool, "pool %s should have no winner", pool)
			continue
		}
		assert.Equal(t, r.ref(ref), byPool[pool], "winner of %s", pool)
	}

	require.NoError(t, r.store.Tx(ctx, func(tx store.Tx) error {
		for user, want := range exp.Balances {
			a, err := tx.Account(ctx, user)
			if err != nil {
				return err
			}
			assert.Equal(t, want, a.Balance, "balance of %s", user)
		}
		for plate, want := range exp.Distances {
			v, err := tx.Vehicle(ctx, plate)
			if err != nil {
				return err
			}
			assert.Equal(t, want, v.DistanceKM, "distance of %s", plate)
		}
		for plate, want := range exp.Vehicles {
			v, err := tx.Vehicle(ctx, plate)
			if errors.Is(err, store.ErrNotFound) {
				t.Errorf("vehicle %s not found", plate)
				continue
			}
			if err != nil {
				return err
			}
			assert.Equal(t, want, v.Status, "status of %s", plate)
		}
		return nil
	}))
}

