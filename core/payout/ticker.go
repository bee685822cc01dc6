// Package payout credits the owners of active schedules for every slice of
// a frame they operate and adds the driven distance to the assigned
// vehicles.
package payout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/lineauction/core/logger"
	"github.com/kilianp07/lineauction/core/metrics"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/monitoring"
	"github.com/kilianp07/lineauction/core/store"
)

// Report summarizes one RunTick.
type Report struct {
	Date      string      `json:"date,omitempty"`
	Frame     model.Frame `json:"frame,omitempty"`
	Tick      int         `json:"tick"`
	Skipped   bool        `json:"skipped,omitempty"`
	Schedules int         `json:"schedules"`
	Credited  int64       `json:"credited"`
	Vehicles  int         `json:"vehicles"`
	Failed    []int64     `json:"failed,omitempty"`
}

type tickKey struct {
	date  string
	frame model.Frame
	tick  int
}

// Ticker runs payout ticks.
type Ticker struct {
	store  store.Store
	frames model.FrameTable
	cfg    Config
	loc    *time.Location
	sink   metrics.Sink
	log    logger.Logger
	now    func() time.Time

	running sync.Mutex

	mu   sync.Mutex
	paid map[tickKey]bool
}

// Option configures a Ticker.
type Option func(*Ticker)

func WithSink(s metrics.Sink) Option { return func(t *Ticker) { t.sink = s } }

func WithLogger(l logger.Logger) Option { return func(t *Ticker) { t.log = l } }

// WithClock overrides time.Now for Start.
func WithClock(now func() time.Time) Option { return func(t *Ticker) { t.now = now } }

// NewTicker returns a Ticker. cfg defaults are applied.
func NewTicker(st store.Store, frames model.FrameTable, cfg Config, opts ...Option) (*Ticker, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := cfg.Location()
	t := &Ticker{
		store:  st,
		frames: frames,
		cfg:    cfg,
		loc:    loc,
		sink:   metrics.NopSink{},
		log:    logger.Nop{},
		now:    time.Now,
		paid:   make(map[tickKey]bool),
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Start fires RunTick every configured interval until ctx is done. A firing
// that finds the previous one still running is skipped.
func (t *Ticker) Start(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.Interval())
	defer ticker.Stop()
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				t.fire(ctx)
			}()
		}
	}
}

func (t *Ticker) fire(ctx context.Context) {
	if !t.running.TryLock() {
		ticksTotal.WithLabelValues("overlap").Inc()
		t.log.Warnf("payout tick still running, skipping")
		return
	}
	defer t.running.Unlock()
	if _, err := t.RunTick(ctx, t.now()); err != nil {
		t.log.Errorf("payout tick: %v", err)
	}
}

// TickIndex returns the slice of spec that m falls in, clamped to
// [0, ticks-1].
func TickIndex(spec model.FrameSpec, m model.Clock, ticks int) int {
	length := spec.Minutes()
	if ticks <= 0 || length <= 0 {
		return 0
	}
	idx := int(m-spec.Start) * ticks / length
	return max(0, min(ticks-1, idx))
}

// Amount returns the credit of a bid for tick idx: bid is spread over ticks
// and the remainder goes to the first slices.
func Amount(bid int64, ticks, idx int) int64 {
	if ticks <= 0 {
		return 0
	}
	n := int64(ticks)
	amount := bid / n
	if int64(idx) < bid%n {
		amount++
	}
	return amount
}

// RunTick pays the active schedules of the frame containing now. Each
// schedule is credited in its own transaction; failures are reported and do
// not stop the others. A (date, frame, tick) already paid is skipped.
func (t *Ticker) RunTick(ctx context.Context, now time.Time) (Report, error) {
	now = now.In(t.loc)
	m := model.Clock(now.Hour()*60 + now.Minute())
	spec, ok := t.frames.At(m)
	if !ok {
		ticksTotal.WithLabelValues("idle").Inc()
		t.log.Debugf("no frame at %s", m)
		return Report{}, nil
	}
	rep := Report{
		Date:  now.Format(time.DateOnly),
		Frame: spec.Name,
		Tick:  TickIndex(spec, m, t.cfg.TicksPerFrame),
	}
	if !t.claim(tickKey{date: rep.Date, frame: rep.Frame, tick: rep.Tick}) {
		ticksTotal.WithLabelValues("duplicate").Inc()
		rep.Skipped = true
		t.log.Infof("payout %s %s tick %d already paid", rep.Date, rep.Frame, rep.Tick)
		return rep, nil
	}

	var active []model.Schedule
	err := t.store.Tx(ctx, func(tx store.Tx) error {
		var err error
		active, err = tx.ActiveSchedules(ctx, spec.Name)
		return err
	})
	if err != nil {
		t.release(tickKey{date: rep.Date, frame: rep.Frame, tick: rep.Tick})
		ticksTotal.WithLabelValues("error").Inc()
		return rep, fmt.Errorf("payout %s: %w", spec.Name, err)
	}

	for _, s := range active {
		amount := Amount(s.BidPrice, t.cfg.TicksPerFrame, rep.Tick)
		vehicles, paid, err := t.pay(ctx, s, amount)
		if err != nil {
			scheduleFailures.Inc()
			rep.Failed = append(rep.Failed, s.ID)
			t.log.Errorf("payout schedule %d: %v", s.ID, err)
			monitoring.CaptureException(err, map[string]string{
				"module":   "payout",
				"schedule": fmt.Sprint(s.ID),
				"frame":    string(spec.Name),
			})
			continue
		}
		if !paid {
			continue
		}
		rep.Schedules++
		rep.Credited += amount
		rep.Vehicles += vehicles
		creditedTotal.WithLabelValues(string(spec.Name)).Add(float64(amount))
		rec := metrics.PayoutRecord{
			ScheduleID: s.ID,
			Owner:      s.Owner,
			Pool:       s.Pool(),
			Tick:       rep.Tick,
			Amount:     amount,
			Vehicles:   vehicles,
			DistanceKM: int64(vehicles) * t.cfg.DistancePerTickKM,
			Time:       now,
		}
		if err := t.sink.RecordPayout(rec); err != nil {
			t.log.Warnf("metrics sink payout %d: %v", s.ID, err)
		}
	}
	ticksTotal.WithLabelValues("paid").Inc()
	t.log.Infof("payout %s %s tick %d: %d schedule(s), %d credited, %d failed",
		rep.Date, rep.Frame, rep.Tick, rep.Schedules, rep.Credited, len(rep.Failed))
	return rep, nil
}

// pay credits one schedule and returns the number of vehicles whose
// distance was increased. A schedule that lost its active status since the
// listing is not paid.
func (t *Ticker) pay(ctx context.Context, s model.Schedule, amount int64) (int, bool, error) {
	var (
		vehicles int
		paid     bool
	)
	err := t.store.Tx(ctx, func(tx store.Tx) error {
		cur, err := tx.Schedule(ctx, s.ID)
		if err != nil {
			return err
		}
		if cur.Status != model.StatusActive {
			return nil
		}
		if amount > 0 {
			if err := tx.AdjustBalance(ctx, s.Owner, amount); err != nil {
				return fmt.Errorf("credit %s: %w", s.Owner, err)
			}
		}
		as, err := tx.Assignments(ctx, s.ID)
		if err != nil {
			return err
		}
		for _, a := range as {
			if err := tx.AddVehicleDistance(ctx, a.Plate, t.cfg.DistancePerTickKM); err != nil {
				return fmt.Errorf("distance %s: %w", a.Plate, err)
			}
		}
		vehicles, paid = len(as), true
		return nil
	})
	return vehicles, paid, err
}

// claim marks key as paid and reports whether it was free. Keys of other
// dates are dropped.
func (t *Ticker) claim(key tickKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paid[key] {
		return false
	}
	for k := range t.paid {
		if k.date != key.date {
			delete(t.paid, k)
		}
	}
	t.paid[key] = true
	return true
}

func (t *Ticker) release(key tickKey) {
	t.mu.Lock()
	delete(t.paid, key)
	t.mu.Unlock()
}
