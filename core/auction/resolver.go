package auction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/lineauction/core/auction/journal"
	"github.com/kilianp07/lineauction/core/bidcap"
	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/events"
	"github.com/kilianp07/lineauction/core/logger"
	"github.com/kilianp07/lineauction/core/metrics"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
	"github.com/kilianp07/lineauction/internal/eventbus"
)

// PoolResolver resolves one pool. It is implemented by *Resolver.
type PoolResolver interface {
	Resolve(ctx context.Context, line string, frame model.Frame) (winnerID int64, ok bool, err error)
}

// Resolver selects pool winners and persists schedule statuses.
type Resolver struct {
	store   store.Store
	caps    bidcap.Calculator
	checker Checker
	locks   *poolLocks

	journal journal.Store
	bus     *eventbus.TypedBus[events.Outcome]
	sink    metrics.Sink
	log     logger.Logger
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithJournal appends a record for every committed resolution.
func WithJournal(j journal.Store) Option { return func(r *Resolver) { r.journal = j } }

// WithBus publishes outcomes on bus.
func WithBus(bus *eventbus.TypedBus[events.Outcome]) Option {
	return func(r *Resolver) { r.bus = bus }
}

// WithSink forwards outcomes to a metrics sink.
func WithSink(s metrics.Sink) Option { return func(r *Resolver) { r.sink = s } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(r *Resolver) { r.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// NewResolver returns a Resolver over s.
func NewResolver(s store.Store, caps bidcap.Calculator, planner duty.Planner, opts ...Option) *Resolver {
	r := &Resolver{
		store:   s,
		caps:    caps,
		checker: Checker{Planner: planner},
		locks:   newPoolLocks(),
		journal: journal.Nop{},
		sink:    metrics.NopSink{},
		log:     logger.Nop{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Checker exposes the feasibility checker used by the resolver.
func (r *Resolver) Checker() Checker { return r.checker }

// Caps exposes the bid cap calculator used by the resolver.
func (r *Resolver) Caps() bidcap.Calculator { return r.caps }

// Resolve recomputes the winner of the (line, frame) pool. ok is false when
// the pool is empty or has no eligible schedule.
func (r *Resolver) Resolve(ctx context.Context, line string, frame model.Frame) (int64, bool, error) {
	key := model.PoolKey{Line: line, Frame: frame}
	trigger := TriggerFrom(ctx)
	start := time.Now()

	release := r.locks.lock(key)
	defer release()

	var rec journal.Record
	err := r.store.Tx(ctx, func(tx store.Tx) error {
		var err error
		rec, err = r.resolveTx(ctx, tx, key)
		return err
	})
	elapsed := time.Since(start)
	resolutionDuration.Observe(elapsed.Seconds())
	if err != nil {
		resolutionsTotal.WithLabelValues(trigger, "error").Inc()
		return 0, false, fmt.Errorf("resolve %s: %w", key, err)
	}
	if len(rec.Candidates) == 0 {
		resolutionsTotal.WithLabelValues(trigger, "empty").Inc()
		r.log.Debugw("pool empty", map[string]any{"pool": key.String(), "trigger": trigger})
		return 0, false, nil
	}

	rec.TraceID = uuid.NewString()
	rec.Timestamp = r.now()
	rec.Trigger = trigger
	r.publish(ctx, rec, elapsed)
	return rec.WinnerID, rec.WinnerID != 0, nil
}

func (r *Resolver) resolveTx(ctx context.Context, tx store.Tx, key model.PoolKey) (journal.Record, error) {
	rec := journal.Record{Pool: key}
	if err := tx.LockPool(ctx, key); err != nil {
		return rec, err
	}
	pool, err := tx.SchedulesInPool(ctx, key)
	if err != nil {
		return rec, err
	}
	if len(pool) == 0 {
		return rec, nil
	}

	var eligible []model.Schedule
	for _, s := range pool {
		f, err := r.checker.CheckTx(ctx, tx, s)
		if err != nil {
			return rec, err
		}
		c := journal.Candidate{
			ScheduleID: s.ID,
			Owner:      s.Owner,
			Frequency:  s.Frequency,
			BidPrice:   s.BidPrice,
			Cap:        r.caps.Cap(s.Frequency, s.Frame),
			Required:   f.Required,
			Assigned:   f.Assigned,
		}
		c.Eligible = f.Feasible() && float64(s.BidPrice) <= c.Cap
		if c.Eligible {
			eligible = append(eligible, s)
		}
		rec.Candidates = append(rec.Candidates, c)
	}

	winner := pickWinner(eligible)
	if winner != nil {
		rec.WinnerID = winner.ID
	}
	target := func(s model.Schedule) model.ScheduleStatus {
		switch {
		case winner == nil:
			return model.StatusPending
		case s.ID == winner.ID:
			return model.StatusActive
		default:
			return model.StatusLost
		}
	}
	// demote before promoting so at most one schedule is active at any
	// point of the transaction
	for _, s := range pool {
		if t := target(s); t != model.StatusActive && s.Status != t {
			if err := tx.SetScheduleStatus(ctx, s.ID, t); err != nil {
				return rec, err
			}
		}
	}
	if winner != nil && winner.Status != model.StatusActive {
		if err := tx.SetScheduleStatus(ctx, winner.ID, model.StatusActive); err != nil {
			return rec, err
		}
	}
	for i := range rec.Candidates {
		rec.Candidates[i].Status = target(pool[i])
	}
	return rec, nil
}

// pickWinner orders by intensity descending, bid ascending, id ascending.
func pickWinner(eligible []model.Schedule) *model.Schedule {
	if len(eligible) == 0 {
		return nil
	}
	sorted := append([]model.Schedule(nil), eligible...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ia, ib := model.Intensity(a.Frequency), model.Intensity(b.Frequency)
		if ia != ib {
			return ia > ib
		}
		if a.BidPrice != b.BidPrice {
			return a.BidPrice < b.BidPrice
		}
		return a.ID < b.ID
	})
	return &sorted[0]
}

func (r *Resolver) publish(ctx context.Context, rec journal.Record, elapsed time.Duration) {
	result := "no_winner"
	eligible := 0
	for _, c := range rec.Candidates {
		if c.Eligible {
			eligible++
		}
	}
	if rec.WinnerID != 0 {
		result = "winner"
	}
	resolutionsTotal.WithLabelValues(rec.Trigger, result).Inc()

	if err := r.journal.Append(ctx, rec); err != nil {
		r.log.Warnf("journal append %s: %v", rec.Pool, err)
	}
	o := events.Outcome{
		TraceID:    rec.TraceID,
		Pool:       rec.Pool,
		WinnerID:   rec.WinnerID,
		Candidates: len(rec.Candidates),
		Eligible:   eligible,
		Trigger:    rec.Trigger,
		Duration:   elapsed,
		At:         rec.Timestamp,
	}
	if r.bus != nil {
		r.bus.Publish(o)
	}
	if err := r.sink.RecordOutcome(o); err != nil {
		r.log.Warnf("metrics sink %s: %v", rec.Pool, err)
	}
	r.log.Debugw("pool resolved", map[string]any{
		"pool":       rec.Pool.String(),
		"trigger":    rec.Trigger,
		"winner":     rec.WinnerID,
		"candidates": len(rec.Candidates),
		"eligible":   eligible,
		"trace_id":   rec.TraceID,
	})
}

// ResolveAll resolves each distinct pool of keys once, in first-seen order,
// and stops at the first error.
func (r *Resolver) ResolveAll(ctx context.Context, keys ...model.PoolKey) error {
	seen := make(map[model.PoolKey]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, _, err := r.Resolve(ctx, k.Line, k.Frame); err != nil {
			return err
		}
	}
	return nil
}
