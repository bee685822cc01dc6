package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
)

type tx struct {
	tx      *sql.Tx
	dialect string
}

func (t *tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, rebind(t.dialect, query), args...)
}

func (t *tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, rebind(t.dialect, query), args...)
}

// execOne runs a keyed update and maps zero affected rows to ErrNotFound.
func (t *tx) execOne(ctx context.Context, query string, args ...any) error {
	res, err := t.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (t *tx) LockPool(ctx context.Context, key model.PoolKey) error {
	if t.dialect != DriverPostgres {
		return nil
	}
	_, err := t.exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(?))`, key.String())
	if err != nil {
		return fmt.Errorf("lock pool %s: %w", key, err)
	}
	return nil
}

func (t *tx) Line(ctx context.Context, name string) (model.Line, error) {
	var l model.Line
	err := t.queryRow(ctx, `SELECT name, provider_garage_id, travel_time_garage, travel_time_line
		FROM lines WHERE name = ?`, name).
		Scan(&l.Name, &l.ProviderGarageID, &l.GarageTravel, &l.LineTravel)
	return l, notFound(err)
}

func (t *tx) UpsertLine(ctx context.Context, l model.Line) error {
	_, err := t.exec(ctx, `INSERT INTO lines (name, provider_garage_id, travel_time_garage, travel_time_line)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET provider_garage_id = excluded.provider_garage_id,
			travel_time_garage = excluded.travel_time_garage, travel_time_line = excluded.travel_time_line`,
		l.Name, l.ProviderGarageID, l.GarageTravel, l.LineTravel)
	return err
}

const scheduleColumns = `id, owner, line_name, garage_id, frame, start_min, end_min, frequency, bid_price, status`

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(r scanner) (model.Schedule, error) {
	var (
		s             model.Schedule
		frame, status string
		start, end    int
	)
	if err := r.Scan(&s.ID, &s.Owner, &s.LineName, &s.GarageID, &frame, &start, &end,
		&s.Frequency, &s.BidPrice, &status); err != nil {
		return s, err
	}
	s.Frame = model.Frame(frame)
	s.Status = model.ScheduleStatus(status)
	s.Start, s.End = model.Clock(start), model.Clock(end)
	return s, nil
}

func (t *tx) schedules(ctx context.Context, where string, args ...any) ([]model.Schedule, error) {
	rows, err := t.tx.QueryContext(ctx,
		rebind(t.dialect, `SELECT `+scheduleColumns+` FROM schedules WHERE `+where+` ORDER BY id`), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *tx) Schedule(ctx context.Context, id int64) (model.Schedule, error) {
	s, err := scanSchedule(t.queryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id))
	return s, notFound(err)
}

func (t *tx) InsertSchedule(ctx context.Context, s model.Schedule) (int64, error) {
	var id int64
	err := t.queryRow(ctx, `INSERT INTO schedules
		(owner, line_name, garage_id, frame, start_min, end_min, frequency, bid_price, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		s.Owner, s.LineName, s.GarageID, string(s.Frame), int(s.Start), int(s.End),
		s.Frequency, s.BidPrice, string(s.Status)).Scan(&id)
	return id, err
}

func (t *tx) UpdateScheduleFrequency(ctx context.Context, id int64, frequency int) error {
	return t.execOne(ctx, `UPDATE schedules SET frequency = ? WHERE id = ?`, frequency, id)
}

func (t *tx) SetScheduleStatus(ctx context.Context, id int64, status model.ScheduleStatus) error {
	return t.execOne(ctx, `UPDATE schedules SET status = ? WHERE id = ?`, string(status), id)
}

func (t *tx) DeleteSchedule(ctx context.Context, id int64) error {
	if _, err := t.exec(ctx, `DELETE FROM schedule_assignments WHERE schedule_id = ?`, id); err != nil {
		return err
	}
	_, err := t.exec(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	return err
}

func (t *tx) SchedulesInPool(ctx context.Context, key model.PoolKey) ([]model.Schedule, error) {
	return t.schedules(ctx, `line_name = ? AND frame = ?`, key.Line, string(key.Frame))
}

func (t *tx) ActiveSchedules(ctx context.Context, frame model.Frame) ([]model.Schedule, error) {
	return t.schedules(ctx, `frame = ? AND status = ?`, string(frame), string(model.StatusActive))
}

func (t *tx) SchedulesForOwner(ctx context.Context, owner string) ([]model.Schedule, error) {
	return t.schedules(ctx, `owner = ?`, owner)
}

func (t *tx) SchedulesForLine(ctx context.Context, line string) ([]model.Schedule, error) {
	return t.schedules(ctx, `line_name = ?`, line)
}

func (t *tx) Assignments(ctx context.Context, scheduleID int64) ([]model.Assignment, error) {
	rows, err := t.tx.QueryContext(ctx, rebind(t.dialect,
		`SELECT schedule_id, block, plate FROM schedule_assignments WHERE schedule_id = ? ORDER BY block`), scheduleID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ScheduleID, &a.Block, &a.Plate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *tx) ReplaceAssignments(ctx context.Context, scheduleID int64, as []model.Assignment) error {
	// reject duplicates before touching the table; PostgreSQL aborts the
	// whole transaction on a constraint violation
	blocks := make(map[int]bool, len(as))
	plates := make(map[string]bool, len(as))
	for _, a := range as {
		if blocks[a.Block] || plates[a.Plate] {
			return fmt.Errorf("schedule %d block %d plate %s: %w", scheduleID, a.Block, a.Plate, store.ErrDuplicate)
		}
		blocks[a.Block], plates[a.Plate] = true, true
	}
	if _, err := t.exec(ctx, `DELETE FROM schedule_assignments WHERE schedule_id = ?`, scheduleID); err != nil {
		return err
	}
	for _, a := range as {
		if _, err := t.exec(ctx, `INSERT INTO schedule_assignments (schedule_id, block, plate) VALUES (?, ?, ?)`,
			scheduleID, a.Block, a.Plate); err != nil {
			return fmt.Errorf("insert block %d: %w", a.Block, err)
		}
	}
	return nil
}

func (t *tx) DeleteAssignmentsForVehicle(ctx context.Context, plate string) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, rebind(t.dialect,
		`SELECT DISTINCT schedule_id FROM schedule_assignments WHERE plate = ? ORDER BY schedule_id`), plate)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()
	if _, err := t.exec(ctx, `DELETE FROM schedule_assignments WHERE plate = ?`, plate); err != nil {
		return nil, err
	}
	return ids, nil
}

func (t *tx) Vehicle(ctx context.Context, plate string) (model.Vehicle, error) {
	var (
		v      model.Vehicle
		status string
	)
	err := t.queryRow(ctx, `SELECT plate, owner, garage_id, status, line, distance_km FROM vehicles WHERE plate = ?`, plate).
		Scan(&v.Plate, &v.Owner, &v.GarageID, &status, &v.Line, &v.DistanceKM)
	v.Status = model.VehicleStatus(status)
	return v, notFound(err)
}

func (t *tx) UpsertVehicle(ctx context.Context, v model.Vehicle) error {
	_, err := t.exec(ctx, `INSERT INTO vehicles (plate, owner, garage_id, status, line, distance_km)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (plate) DO UPDATE SET owner = excluded.owner, garage_id = excluded.garage_id,
			status = excluded.status, line = excluded.line, distance_km = excluded.distance_km`,
		v.Plate, v.Owner, v.GarageID, string(v.Status), v.Line, v.DistanceKM)
	return err
}

func (t *tx) AddVehicleDistance(ctx context.Context, plate string, km int64) error {
	return t.execOne(ctx, `UPDATE vehicles SET distance_km = distance_km + ? WHERE plate = ?`, km, plate)
}

func (t *tx) Account(ctx context.Context, username string) (model.Account, error) {
	var a model.Account
	err := t.queryRow(ctx, `SELECT username, balance FROM accounts WHERE username = ?`, username).
		Scan(&a.Username, &a.Balance)
	return a, notFound(err)
}

func (t *tx) UpsertAccount(ctx context.Context, a model.Account) error {
	_, err := t.exec(ctx, `INSERT INTO accounts (username, balance) VALUES (?, ?)
		ON CONFLICT (username) DO UPDATE SET balance = excluded.balance`, a.Username, a.Balance)
	return err
}

func (t *tx) AdjustBalance(ctx context.Context, username string, delta int64) error {
	return t.execOne(ctx, `UPDATE accounts SET balance = balance + ? WHERE username = ?`, delta, username)
}
