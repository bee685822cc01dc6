// Package store defines the persistence boundary of the auction core. Every
// read and write happens inside a Tx so that a failing operation leaves no
// partial state behind.
package store

import (
	"context"
	"errors"

	"github.com/kilianp07/lineauction/core/model"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a write violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// Store opens transactions.
type Store interface {
	// Tx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	Tx(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// LockPool serializes concurrent resolutions of the same pool across
	// processes. Backends without such a facility treat it as a no-op.
	LockPool(ctx context.Context, key model.PoolKey) error

	Line(ctx context.Context, name string) (model.Line, error)
	UpsertLine(ctx context.Context, l model.Line) error

	Schedule(ctx context.Context, id int64) (model.Schedule, error)
	InsertSchedule(ctx context.Context, s model.Schedule) (int64, error)
	UpdateScheduleFrequency(ctx context.Context, id int64, frequency int) error
	SetScheduleStatus(ctx context.Context, id int64, status model.ScheduleStatus) error
	// DeleteSchedule removes the schedule and its assignments.
	DeleteSchedule(ctx context.Context, id int64) error
	// SchedulesInPool returns the schedules of a pool ordered by id.
	SchedulesInPool(ctx context.Context, key model.PoolKey) ([]model.Schedule, error)
	// ActiveSchedules returns active schedules of a frame ordered by id.
	ActiveSchedules(ctx context.Context, frame model.Frame) ([]model.Schedule, error)
	SchedulesForOwner(ctx context.Context, owner string) ([]model.Schedule, error)
	SchedulesForLine(ctx context.Context, line string) ([]model.Schedule, error)

	// Assignments returns the assignments of a schedule ordered by block.
	Assignments(ctx context.Context, scheduleID int64) ([]model.Assignment, error)
	// ReplaceAssignments deletes the schedule's assignments and inserts as.
	ReplaceAssignments(ctx context.Context, scheduleID int64, as []model.Assignment) error
	// DeleteAssignmentsForVehicle removes every assignment of plate and
	// returns the ids of the schedules that lost one, ascending.
	DeleteAssignmentsForVehicle(ctx context.Context, plate string) ([]int64, error)

	Vehicle(ctx context.Context, plate string) (model.Vehicle, error)
	UpsertVehicle(ctx context.Context, v model.Vehicle) error
	AddVehicleDistance(ctx context.Context, plate string, km int64) error

	Account(ctx context.Context, username string) (model.Account, error)
	UpsertAccount(ctx context.Context, a model.Account) error
	// AdjustBalance adds delta to the account balance.
	AdjustBalance(ctx context.Context, username string, delta int64) error
}
