// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
)

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("Collaborators", func(t *testing.T) { testCollaborators(t, open(t)) })
	t.Run("Schedules", func(t *testing.T) { testSchedules(t, open(t)) })
	t.Run("Assignments", func(t *testing.T) { testAssignments(t, open(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open(t)) })
}

func seed(t *testing.T, s store.Store) {
	t.Helper()
	err := store.Seed(context.Background(), s, store.Fixtures{
		Lines: []model.Line{{Name: "L1", ProviderGarageID: 1, GarageTravel: 10, LineTravel: 30}},
		Vehicles: []model.Vehicle{
			{Plate: "AAA-001", Owner: "alice", GarageID: 1, Status: model.VehicleReady},
			{Plate: "AAA-002", Owner: "alice", GarageID: 1, Status: model.VehicleReady},
		},
		Accounts: []model.Account{{Username: "alice", Balance: 100}},
	})
	require.NoError(t, err)
}

func testCollaborators(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)
	err := s.Tx(ctx, func(tx store.Tx) error {
		l, err := tx.Line(ctx, "L1")
		require.NoError(t, err)
		assert.Equal(t, 30, l.LineTravel)
		_, err = tx.Line(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, tx.AddVehicleDistance(ctx, "AAA-001", 10))
		require.NoError(t, tx.AddVehicleDistance(ctx, "AAA-001", 10))
		v, err := tx.Vehicle(ctx, "AAA-001")
		require.NoError(t, err)
		assert.Equal(t, int64(20), v.DistanceKM)
		assert.ErrorIs(t, tx.AddVehicleDistance(ctx, "ZZZ", 1), store.ErrNotFound)

		v.Status = model.VehicleInService
		v.Line = "L1"
		require.NoError(t, tx.UpsertVehicle(ctx, v))
		v, err = tx.Vehicle(ctx, "AAA-001")
		require.NoError(t, err)
		assert.Equal(t, model.VehicleInService, v.Status)
		assert.Equal(t, "L1", v.Line)

		require.NoError(t, tx.AdjustBalance(ctx, "alice", 25))
		a, err := tx.Account(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(125), a.Balance)
		assert.ErrorIs(t, tx.AdjustBalance(ctx, "bob", 1), store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func newSchedule(owner string, frame model.Frame, freq int, bid int64) model.Schedule {
	return model.Schedule{
		Owner: owner, LineName: "L1", GarageID: 1, Frame: frame,
		Start: model.MustClock("08:00"), End: model.MustClock("12:00"),
		Frequency: freq, BidPrice: bid, Status: model.StatusPending,
	}
}

func testSchedules(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)
	var id1, id2, id3 int64
	require.NoError(t, s.Tx(ctx, func(tx store.Tx) error {
		var err error
		id1, err = tx.InsertSchedule(ctx, newSchedule("alice", model.FrameMidday, 15, 100))
		require.NoError(t, err)
		id2, err = tx.InsertSchedule(ctx, newSchedule("bob", model.FrameMidday, 20, 90))
		require.NoError(t, err)
		id3, err = tx.InsertSchedule(ctx, newSchedule("alice", model.FrameEvening, 30, 50))
		require.NoError(t, err)
		return nil
	}))
	assert.Less(t, id1, id2)
	assert.Less(t, id2, id3)

	require.NoError(t, s.Tx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.LockPool(ctx, model.PoolKey{Line: "L1", Frame: model.FrameMidday}))
		pool, err := tx.SchedulesInPool(ctx, model.PoolKey{Line: "L1", Frame: model.FrameMidday})
		require.NoError(t, err)
		require.Len(t, pool, 2)
		assert.Equal(t, id1, pool[0].ID)
		assert.Equal(t, "08:00", pool[0].Start.String())
		assert.Equal(t, "12:00", pool[0].End.String())

		require.NoError(t, tx.UpdateScheduleFrequency(ctx, id1, 12))
		require.NoError(t, tx.SetScheduleStatus(ctx, id1, model.StatusActive))
		assert.ErrorIs(t, tx.SetScheduleStatus(ctx, 9999, model.StatusActive), store.ErrNotFound)
		assert.ErrorIs(t, tx.UpdateScheduleFrequency(ctx, 9999, 5), store.ErrNotFound)

		got, err := tx.Schedule(ctx, id1)
		require.NoError(t, err)
		assert.Equal(t, 12, got.Frequency)
		assert.Equal(t, model.StatusActive, got.Status)

		active, err := tx.ActiveSchedules(ctx, model.FrameMidday)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, id1, active[0].ID)

		mine, err := tx.SchedulesForOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, mine, 2)
		onLine, err := tx.SchedulesForLine(ctx, "L1")
		require.NoError(t, err)
		assert.Len(t, onLine, 3)

		require.NoError(t, tx.DeleteSchedule(ctx, id2))
		_, err = tx.Schedule(ctx, id2)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	}))
}

func testAssignments(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)
	require.NoError(t, s.Tx(ctx, func(tx store.Tx) error {
		id, err := tx.InsertSchedule(ctx, newSchedule("alice", model.FrameMidday, 60, 100))
		require.NoError(t, err)
		other, err := tx.InsertSchedule(ctx, newSchedule("alice", model.FrameEvening, 60, 100))
		require.NoError(t, err)

		require.NoError(t, tx.ReplaceAssignments(ctx, id, []model.Assignment{
			{Block: 1, Plate: "AAA-002"}, {Block: 0, Plate: "AAA-001"},
		}))
		require.NoError(t, tx.ReplaceAssignments(ctx, other, []model.Assignment{{Block: 0, Plate: "AAA-001"}}))
		as, err := tx.Assignments(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []model.Assignment{
			{ScheduleID: id, Block: 0, Plate: "AAA-001"},
			{ScheduleID: id, Block: 1, Plate: "AAA-002"},
		}, as)

		err = tx.ReplaceAssignments(ctx, id, []model.Assignment{{Block: 0, Plate: "AAA-001"}, {Block: 1, Plate: "AAA-001"}})
		assert.True(t, errors.Is(err, store.ErrDuplicate), "got %v", err)
		return nil
	}))

	require.NoError(t, s.Tx(ctx, func(tx store.Tx) error {
		ids, err := tx.DeleteAssignmentsForVehicle(ctx, "AAA-001")
		require.NoError(t, err)
		assert.Len(t, ids, 2)
		assert.Less(t, ids[0], ids[1])
		as, err := tx.Assignments(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, []model.Assignment{{ScheduleID: ids[0], Block: 1, Plate: "AAA-002"}}, as)

		none, err := tx.DeleteAssignmentsForVehicle(ctx, "AAA-001")
		require.NoError(t, err)
		assert.Empty(t, none)

		require.NoError(t, tx.DeleteSchedule(ctx, ids[0]))
		as, err = tx.Assignments(ctx, ids[0])
		require.NoError(t, err)
		assert.Empty(t, as)
		return nil
	}))
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)
	boom := errors.New("boom")
	err := s.Tx(ctx, func(tx store.Tx) error {
		if _, err := tx.InsertSchedule(ctx, newSchedule("alice", model.FrameMidday, 60, 1)); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, "alice", -100); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.Tx(ctx, func(tx store.Tx) error {
		list, err := tx.SchedulesForOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, list)
		a, err := tx.Account(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(100), a.Balance)
		return nil
	}))
}
