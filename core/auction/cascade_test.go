package auction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/events"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/monitoring"
	"github.com/kilianp07/lineauction/core/store"
)

type call struct {
	pool    model.PoolKey
	trigger string
}

type fakeResolver struct {
	mu    sync.Mutex
	calls []call
	fail  map[model.PoolKey]error
}

func (f *fakeResolver) Resolve(ctx context.Context, line string, frame model.Frame) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := model.PoolKey{Line: line, Frame: frame}
	f.calls = append(f.calls, call{pool: k, trigger: TriggerFrom(ctx)})
	if err := f.fail[k]; err != nil {
		return 0, false, err
	}
	return int64(len(f.calls)), true, nil
}

func invalidated(line string, frame model.Frame, plate, reason string) events.AssignmentsInvalidated {
	return events.AssignmentsInvalidated{Line: line, Frame: frame, Plate: plate, Reason: reason}
}

func TestBatchDedup(t *testing.T) {
	var b Batch
	assert.Zero(t, b.Len())
	b.Add(invalidated("L1", model.FrameMidday, "A", events.ReasonBreakdown))
	b.Add(invalidated("L2", model.FrameNight, "A", events.ReasonBreakdown))
	b.Add(invalidated("L1", model.FrameMidday, "B", events.ReasonBreakdown))

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []model.PoolKey{
		{Line: "L1", Frame: model.FrameMidday},
		{Line: "L2", Frame: model.FrameNight},
	}, b.Pools())
	assert.Len(t, b.Events(), 3)
}

func TestCascadeFlush(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	t.Cleanup(func() { ResetMetrics(nil) })
	rec := &monitoring.Recorder{}
	monitoring.Init(rec)
	t.Cleanup(func() { monitoring.Init(monitoring.NopMonitor{}) })

	bad := model.PoolKey{Line: "L2", Frame: model.FrameNight}
	r := &fakeResolver{fail: map[model.PoolKey]error{bad: errors.New("db down")}}
	c := NewCascade(r, nil)

	var b Batch
	b.Add(invalidated("L2", model.FrameNight, "A", events.ReasonTransfer))
	b.Add(invalidated("L1", model.FrameMidday, "A", events.ReasonTransfer))
	b.Add(invalidated("L1", model.FrameMidday, "B", events.ReasonTransfer))

	rep := c.Flush(context.Background(), &b)
	assert.False(t, rep.OK())
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, bad, rep.Failed[0].Pool)
	require.Len(t, rep.Resolved, 1)
	assert.Equal(t, model.PoolKey{Line: "L1", Frame: model.FrameMidday}, rep.Resolved[0].Pool)

	require.Len(t, r.calls, 2)
	for _, c := range r.calls {
		assert.Equal(t, TriggerTransfer, c.trigger)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(cascadeFailures))

	caps := rec.Captures()
	require.Len(t, caps, 1)
	assert.Equal(t, "L2", caps[0].Tags["line"])
	assert.Equal(t, "night", caps[0].Tags["frame"])
}

func TestCascadeFlushEmpty(t *testing.T) {
	r := &fakeResolver{}
	c := NewCascade(r, nil)
	assert.True(t, c.Flush(context.Background(), nil).OK())
	assert.True(t, c.Flush(context.Background(), &Batch{}).OK())
	assert.Empty(t, r.calls)
}

func TestCascadeWithResolver(t *testing.T) {
	e := newEnv(t)
	winner := e.addSchedule("alice", model.FrameMidday, 20, 10000, -1)
	runnerUp := e.addSchedule("bob", model.FrameMidday, 30, 10000, -1)
	e.resolve(model.FrameMidday)

	ctx := context.Background()
	var b Batch
	require.NoError(t, e.store.Tx(ctx, func(tx store.Tx) error {
		ids, err := tx.DeleteAssignmentsForVehicle(ctx, "alice-00")
		require.Equal(t, []int64{winner.ID}, ids)
		b.Add(invalidated("L1", model.FrameMidday, "alice-00", events.ReasonBreakdown))
		return err
	}))
	rep := NewCascade(e.resolver, nil).Flush(ctx, &b)
	require.True(t, rep.OK())
	assert.Equal(t, runnerUp.ID, rep.Resolved[0].WinnerID)
}

func TestPoolLocks(t *testing.T) {
	p := newPoolLocks()
	k := model.PoolKey{Line: "L1", Frame: model.FrameMidday}
	release := p.lock(k)
	assert.Equal(t, 1, p.size())

	acquired := make(chan struct{})
	go func() {
		r := p.lock(k)
		close(acquired)
		r()
	}()
	select {
	case <-acquired:
		t.Fatal("second lock acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	other := p.lock(model.PoolKey{Line: "L1", Frame: model.FrameNight})
	other()

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
	assert.Eventually(t, func() bool { return p.size() == 0 }, time.Second, 5*time.Millisecond)
}
