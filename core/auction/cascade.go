package auction

import (
	"context"

	"github.com/kilianp07/lineauction/core/events"
	"github.com/kilianp07/lineauction/core/logger"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/monitoring"
)

// Batch collects AssignmentsInvalidated events of one collaborator
// operation. Pools are kept once, in the order first seen.
type Batch struct {
	seen   map[model.PoolKey]bool
	pools  []model.PoolKey
	events []events.AssignmentsInvalidated
}

// Add records e.
func (b *Batch) Add(e events.AssignmentsInvalidated) {
	if b.seen == nil {
		b.seen = make(map[model.PoolKey]bool)
	}
	b.events = append(b.events, e)
	k := e.Pool()
	if b.seen[k] {
		return
	}
	b.seen[k] = true
	b.pools = append(b.pools, k)
}

// Pools returns the distinct pools to resolve.
func (b *Batch) Pools() []model.PoolKey { return append([]model.PoolKey(nil), b.pools...) }

// Events returns every event added, duplicates included.
func (b *Batch) Events() []events.AssignmentsInvalidated {
	return append([]events.AssignmentsInvalidated(nil), b.events...)
}

// Len returns the number of distinct pools.
func (b *Batch) Len() int { return len(b.pools) }

// PoolResult is the outcome of one cascaded resolution.
type PoolResult struct {
	Pool     model.PoolKey `json:"pool"`
	WinnerID int64         `json:"winner_id,omitempty"`
	Err      error         `json:"-"`
}

// CascadeReport lists what a Flush did.
type CascadeReport struct {
	Resolved []PoolResult `json:"resolved"`
	Failed   []PoolResult `json:"failed"`
}

// OK reports whether every pool resolved.
func (r CascadeReport) OK() bool { return len(r.Failed) == 0 }

// Cascade resolves the pools of a Batch on a best-effort basis.
type Cascade struct {
	resolver PoolResolver
	log      logger.Logger
}

// NewCascade returns a Cascade using resolver.
func NewCascade(resolver PoolResolver, log logger.Logger) *Cascade {
	if log == nil {
		log = logger.Nop{}
	}
	return &Cascade{resolver: resolver, log: log}
}

// Flush resolves every pool of b once. A failing pool is logged, counted and
// reported to the error monitor; it keeps its last committed state and does
// not stop the remaining pools.
func (c *Cascade) Flush(ctx context.Context, b *Batch) CascadeReport {
	var rep CascadeReport
	if b == nil {
		return rep
	}
	reasons := make(map[model.PoolKey]string, len(b.pools))
	for _, e := range b.events {
		if _, ok := reasons[e.Pool()]; !ok {
			reasons[e.Pool()] = e.Reason
		}
	}
	for _, k := range b.pools {
		rctx := ctx
		if reason := reasons[k]; reason != "" {
			rctx = WithTrigger(ctx, reason)
		}
		id, _, err := c.resolver.Resolve(rctx, k.Line, k.Frame)
		if err != nil {
			cascadeFailures.Inc()
			c.log.Errorf("cascade resolve %s: %v", k, err)
			monitoring.CaptureException(err, map[string]string{
				"module": "auction",
				"line":   k.Line,
				"frame":  string(k.Frame),
			})
			rep.Failed = append(rep.Failed, PoolResult{Pool: k, Err: err})
			continue
		}
		rep.Resolved = append(rep.Resolved, PoolResult{Pool: k, WinnerID: id})
	}
	return rep
}
