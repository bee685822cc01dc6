package metrics

import (
	"context"

	"github.com/kilianp07/lineauction/core/events"
	coremetrics "github.com/kilianp07/lineauction/core/metrics"
	"github.com/kilianp07/lineauction/infra/logger"
	"github.com/kilianp07/lineauction/internal/eventbus"
)

// StartOutcomeCollector forwards every outcome published on bus to sink
// until ctx is canceled or the bus is closed. The returned channel is
// closed when the collector has stopped.
func StartOutcomeCollector(ctx context.Context, bus *eventbus.TypedBus[events.Outcome], sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("outcome-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case o, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordOutcome(o); err != nil {
					log.Warnf("record outcome %s: %v", o.Pool, err)
				}
			}
		}
	}()
	return done
}
