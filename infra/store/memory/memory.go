// Package memory is an in-process store. Transactions operate on a private
// copy of the data and replace the shared state only on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
)

func init() {
	_ = store.Register("memory", func(map[string]any) (store.Store, error) {
		return New(), nil
	})
}

type data struct {
	lines       map[string]model.Line
	schedules   map[int64]model.Schedule
	assignments map[int64][]model.Assignment
	vehicles    map[string]model.Vehicle
	accounts    map[string]model.Account
	nextID      int64
}

func newData() *data {
	return &data{
		lines:       map[string]model.Line{},
		schedules:   map[int64]model.Schedule{},
		assignments: map[int64][]model.Assignment{},
		vehicles:    map[string]model.Vehicle{},
		accounts:    map[string]model.Account{},
	}
}

func (d *data) clone() *data {
	c := newData()
	c.nextID = d.nextID
	for k, v := range d.lines {
		c.lines[k] = v
	}
	for k, v := range d.schedules {
		c.schedules[k] = v
	}
	for k, v := range d.assignments {
		c.assignments[k] = append([]model.Assignment(nil), v...)
	}
	for k, v := range d.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	return c
}

// Store is a memory backed store.Store.
type Store struct {
	mu     sync.Mutex
	cur    *data
	closed bool
}

// New returns an empty store.
func New() *Store { return &Store{cur: newData()} }

// Tx runs fn on a snapshot and commits it when fn succeeds. Transactions
// are serialized.
func (s *Store) Tx(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store closed")
	}
	work := s.cur.clone()
	if err := fn(&tx{d: work}); err != nil {
		return err
	}
	s.cur = work
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type tx struct {
	d *data
}

func (t *tx) LockPool(context.Context, model.PoolKey) error { return nil }

func (t *tx) Line(_ context.Context, name string) (model.Line, error) {
	l, ok := t.d.lines[name]
	if !ok {
		return model.Line{}, store.ErrNotFound
	}
	return l, nil
}

func (t *tx) UpsertLine(_ context.Context, l model.Line) error {
	t.d.lines[l.Name] = l
	return nil
}

func (t *tx) Schedule(_ context.Context, id int64) (model.Schedule, error) {
	s, ok := t.d.schedules[id]
	if !ok {
		return model.Schedule{}, store.ErrNotFound
	}
	return s, nil
}

func (t *tx) InsertSchedule(_ context.Context, s model.Schedule) (int64, error) {
	t.d.nextID++
	s.ID = t.d.nextID
	t.d.schedules[s.ID] = s
	return s.ID, nil
}

func (t *tx) UpdateScheduleFrequency(_ context.Context, id int64, frequency int) error {
	s, ok := t.d.schedules[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Frequency = frequency
	t.d.schedules[id] = s
	return nil
}

func (t *tx) SetScheduleStatus(_ context.Context, id int64, status model.ScheduleStatus) error {
	s, ok := t.d.schedules[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Status = status
	t.d.schedules[id] = s
	return nil
}

func (t *tx) DeleteSchedule(_ context.Context, id int64) error {
	delete(t.d.schedules, id)
	delete(t.d.assignments, id)
	return nil
}

func (t *tx) filter(keep func(model.Schedule) bool) []model.Schedule {
	var out []model.Schedule
	for _, s := range t.d.schedules {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) SchedulesInPool(_ context.Context, key model.PoolKey) ([]model.Schedule, error) {
	return t.filter(func(s model.Schedule) bool { return s.Pool() == key }), nil
}

func (t *tx) ActiveSchedules(_ context.Context, frame model.Frame) ([]model.Schedule, error) {
	return t.filter(func(s model.Schedule) bool {
		return s.Frame == frame && s.Status == model.StatusActive
	}), nil
}

func (t *tx) SchedulesForOwner(_ context.Context, owner string) ([]model.Schedule, error) {
	return t.filter(func(s model.Schedule) bool { return s.Owner == owner }), nil
}

func (t *tx) SchedulesForLine(_ context.Context, line string) ([]model.Schedule, error) {
	return t.filter(func(s model.Schedule) bool { return s.LineName == line }), nil
}

func (t *tx) Assignments(_ context.Context, scheduleID int64) ([]model.Assignment, error) {
	return append([]model.Assignment(nil), t.d.assignments[scheduleID]...), nil
}

func (t *tx) ReplaceAssignments(_ context.Context, scheduleID int64, as []model.Assignment) error {
	blocks := make(map[int]bool, len(as))
	plates := make(map[string]bool, len(as))
	out := make([]model.Assignment, 0, len(as))
	for _, a := range as {
		if blocks[a.Block] || plates[a.Plate] {
			return fmt.Errorf("schedule %d block %d plate %s: %w", scheduleID, a.Block, a.Plate, store.ErrDuplicate)
		}
		blocks[a.Block], plates[a.Plate] = true, true
		a.ScheduleID = scheduleID
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Block < out[j].Block })
	if len(out) == 0 {
		delete(t.d.assignments, scheduleID)
		return nil
	}
	t.d.assignments[scheduleID] = out
	return nil
}

func (t *tx) DeleteAssignmentsForVehicle(_ context.Context, plate string) ([]int64, error) {
	var ids []int64
	for id, as := range t.d.assignments {
		kept := as[:0:0]
		for _, a := range as {
			if a.Plate != plate {
				kept = append(kept, a)
			}
		}
		if len(kept) == len(as) {
			continue
		}
		ids = append(ids, id)
		if len(kept) == 0 {
			delete(t.d.assignments, id)
		} else {
			t.d.assignments[id] = kept
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *tx) Vehicle(_ context.Context, plate string) (model.Vehicle, error) {
	v, ok := t.d.vehicles[plate]
	if !ok {
		return model.Vehicle{}, store.ErrNotFound
	}
	return v, nil
}

func (t *tx) UpsertVehicle(_ context.Context, v model.Vehicle) error {
	t.d.vehicles[v.Plate] = v
	return nil
}

func (t *tx) AddVehicleDistance(_ context.Context, plate string, km int64) error {
	v, ok := t.d.vehicles[plate]
	if !ok {
		return store.ErrNotFound
	}
	v.DistanceKM += km
	t.d.vehicles[plate] = v
	return nil
}

func (t *tx) Account(_ context.Context, username string) (model.Account, error) {
	a, ok := t.d.accounts[username]
	if !ok {
		return model.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (t *tx) UpsertAccount(_ context.Context, a model.Account) error {
	t.d.accounts[a.Username] = a
	return nil
}

func (t *tx) AdjustBalance(_ context.Context, username string, delta int64) error {
	a, ok := t.d.accounts[username]
	if !ok {
		return store.ErrNotFound
	}
	a.Balance += delta
	t.d.accounts[username] = a
	return nil
}

var _ store.Store = (*Store)(nil)
