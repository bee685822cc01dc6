package payout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/events"
	"github.com/kilianp07/lineauction/core/metrics"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/monitoring"
	"github.com/kilianp07/lineauction/core/store"
	"github.com/kilianp07/lineauction/infra/store/memory"
)

func TestAmountSpreadsBid(t *testing.T) {
	assert.Equal(t, int64(5), Amount(100, 24, 0))
	assert.Equal(t, int64(5), Amount(100, 24, 3))
	assert.Equal(t, int64(4), Amount(100, 24, 4))
	assert.Equal(t, int64(0), Amount(10, 24, 23))
	assert.Equal(t, int64(0), Amount(10, 0, 0))

	for _, bid := range []int64{0, 1, 23, 24, 25, 100, 54625} {
		var sum int64
		for i := 0; i < 24; i++ {
			sum += Amount(bid, 24, i)
		}
		assert.Equal(t, bid, sum, "bid %d", bid)
	}
}

func TestTickIndex(t *testing.T) {
	spec, _ := model.DefaultFrames().Lookup(model.FrameMidday)
	cases := map[string]int{"08:00": 0, "08:09": 0, "08:10": 1, "10:00": 12, "11:59": 23, "07:00": 0, "12:30": 23}
	for clock, want := range cases {
		assert.Equal(t, want, TickIndex(spec, model.MustClock(clock), 24), clock)
	}
	assert.Equal(t, 0, TickIndex(spec, model.MustClock("09:00"), 0))
	assert.Equal(t, 1, TickIndex(spec, model.MustClock("10:00"), 2))
}

type recordingSink struct {
	mu      sync.Mutex
	payouts []metrics.PayoutRecord
}

func (r *recordingSink) RecordOutcome(events.Outcome) error { return nil }
func (r *recordingSink) RecordPayout(p metrics.PayoutRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts = append(r.payouts, p)
	return nil
}

type fixture struct {
	t      *testing.T
	store  store.Store
	ticker *Ticker
	sink   *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	t.Cleanup(func() { ResetMetrics(nil) })
	st := memory.New()
	require.NoError(t, store.Seed(context.Background(), st, store.Fixtures{
		Lines: []model.Line{{Name: "L1", ProviderGarageID: 1, GarageTravel: 10, LineTravel: 30}},
		Vehicles: []model.Vehicle{
			{Plate: "A1", Owner: "alice", GarageID: 1, Status: model.VehicleInService, Line: "L1"},
			{Plate: "A2", Owner: "alice", GarageID: 1, Status: model.VehicleInService, Line: "L1", DistanceKM: 5},
		},
		Accounts: []model.Account{{Username: "alice"}, {Username: "bob", Balance: 7}},
	}))
	sink := &recordingSink{}
	tk, err := NewTicker(st, model.DefaultFrames(), Config{Timezone: "UTC"}, WithSink(sink))
	require.NoError(t, err)
	return &fixture{t: t, store: st, ticker: tk, sink: sink}
}

func (f *fixture) schedule(owner string, frame model.Frame, status model.ScheduleStatus, bid int64, plates ...string) int64 {
	f.t.Helper()
	ctx := context.Background()
	var id int64
	require.NoError(f.t, f.store.Tx(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.InsertSchedule(ctx, model.Schedule{
			Owner: owner, LineName: "L1", GarageID: 1, Frame: frame,
			Frequency: 30, BidPrice: bid, Status: status,
		})
		if err != nil {
			return err
		}
		var as []model.Assignment
		for i, p := range plates {
			as = append(as, model.Assignment{Block: i, Plate: p})
		}
		return tx.ReplaceAssignments(ctx, id, as)
	}))
	return id
}

func (f *fixture) balance(user string) int64 {
	f.t.Helper()
	var a model.Account
	require.NoError(f.t, f.store.Tx(context.Background(), func(tx store.Tx) error {
		var err error
		a, err = tx.Account(context.Background(), user)
		return err
	}))
	return a.Balance
}

func (f *fixture) distance(plate string) int64 {
	f.t.Helper()
	var v model.Vehicle
	require.NoError(f.t, f.store.Tx(context.Background(), func(tx store.Tx) error {
		var err error
		v, err = tx.Vehicle(context.Background(), plate)
		return err
	}))
	return v.DistanceKM
}

func at(clock string) time.Time {
	c := model.MustClock(clock)
	return time.Date(2026, 5, 4, int(c)/60, int(c)%60, 0, 0, time.UTC)
}

func TestRunTickPaysActiveSchedules(t *testing.T) {
	f := newFixture(t)
	id := f.schedule("alice", model.FrameMidday, model.StatusActive, 100, "A1", "A2")
	f.schedule("bob", model.FrameMidday, model.StatusLost, 5000)
	f.schedule("bob", model.FrameEvening, model.StatusActive, 5000)

	rep, err := f.ticker.RunTick(context.Background(), at("08:15"))
	require.NoError(t, err)
	assert.Equal(t, Report{Date: "2026-05-04", Frame: model.FrameMidday, Tick: 1, Schedules: 1, Credited: 5, Vehicles: 2}, rep)
	assert.Equal(t, int64(5), f.balance("alice"))
	assert.Equal(t, int64(7), f.balance("bob"))
	assert.Equal(t, int64(10), f.distance("A1"))
	assert.Equal(t, int64(15), f.distance("A2"))

	require.Len(t, f.sink.payouts, 1)
	p := f.sink.payouts[0]
	assert.Equal(t, id, p.ScheduleID)
	assert.Equal(t, int64(20), p.DistanceKM)
	assert.Equal(t, 5.0, testutil.ToFloat64(creditedTotal.WithLabelValues("midday")))
}

func TestRunTickSkipsPaidSlice(t *testing.T) {
	f := newFixture(t)
	f.schedule("alice", model.FrameMidday, model.StatusActive, 100, "A1")
	ctx := context.Background()

	_, err := f.ticker.RunTick(ctx, at("08:41"))
	require.NoError(t, err)
	rep, err := f.ticker.RunTick(ctx, at("08:49"))
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Equal(t, int64(4), f.balance("alice"))

	rep, err = f.ticker.RunTick(ctx, at("08:50"))
	require.NoError(t, err)
	assert.False(t, rep.Skipped)
	assert.Equal(t, int64(8), f.balance("alice"))
	assert.Equal(t, 1.0, testutil.ToFloat64(ticksTotal.WithLabelValues("duplicate")))
}

func TestRunTickOutsideFrames(t *testing.T) {
	f := newFixture(t)
	f.schedule("alice", model.FrameMorning, model.StatusActive, 100, "A1")
	rep, err := f.ticker.RunTick(context.Background(), at("02:00"))
	require.NoError(t, err)
	assert.Equal(t, Report{}, rep)
	assert.Zero(t, f.balance("alice"))
}

func TestRunTickUsesConfiguredZone(t *testing.T) {
	f := newFixture(t)
	f.schedule("alice", model.FrameNight, model.StatusActive, 240, "A1")
	paris := time.FixedZone("CEST", 2*3600)
	// 21:00 in UTC+2 is 19:00 UTC: evening, not night
	rep, err := f.ticker.RunTick(context.Background(), time.Date(2026, 5, 4, 21, 0, 0, 0, paris))
	require.NoError(t, err)
	assert.Equal(t, model.FrameEvening, rep.Frame)
	assert.Zero(t, f.balance("alice"))
}

func TestRunTickIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	rec := &monitoring.Recorder{}
	monitoring.Init(rec)
	t.Cleanup(func() { monitoring.Init(monitoring.NopMonitor{}) })

	orphan := f.schedule("nobody", model.FrameMidday, model.StatusActive, 100, "A2")
	f.schedule("alice", model.FrameAfternoon, model.StatusActive, 100, "A1")
	f.schedule("bob", model.FrameMidday, model.StatusActive, 240, "A1")

	rep, err := f.ticker.RunTick(context.Background(), at("09:00"))
	require.NoError(t, err)
	assert.Equal(t, []int64{orphan}, rep.Failed)
	assert.Equal(t, 1, rep.Schedules)
	assert.Equal(t, int64(17), f.balance("bob"))
	// the failed transaction rolled back its distance update
	assert.Equal(t, int64(5), f.distance("A2"))
	assert.Equal(t, 1.0, testutil.ToFloat64(scheduleFailures))
	require.Len(t, rec.Captures(), 1)
	assert.Equal(t, "payout", rec.Captures()[0].Tags["module"])
}

func TestFireSkipsWhenRunning(t *testing.T) {
	f := newFixture(t)
	f.schedule("alice", model.FrameMidday, model.StatusActive, 100, "A1")
	f.ticker.now = func() time.Time { return at("09:00") }

	f.ticker.running.Lock()
	f.ticker.fire(context.Background())
	f.ticker.running.Unlock()
	assert.Zero(t, f.balance("alice"))
	assert.Equal(t, 1.0, testutil.ToFloat64(ticksTotal.WithLabelValues("overlap")))

	// 09:00 is tick 6 of midday, past the 4 ticks that carry the remainder
	f.ticker.fire(context.Background())
	assert.Equal(t, int64(4), f.balance("alice"))
}

func TestStartStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.ticker.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return")
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, 600, c.IntervalSeconds)
	assert.Equal(t, 24, c.TicksPerFrame)
	assert.Equal(t, int64(10), c.DistancePerTickKM)
	assert.Equal(t, 10*time.Minute, c.Interval())
	assert.NoError(t, c.Validate())

	c.Timezone = "Mars/Olympus"
	assert.Error(t, c.Validate())
	_, err := NewTicker(nil, model.DefaultFrames(), Config{TicksPerFrame: -1})
	assert.Error(t, err)
}
