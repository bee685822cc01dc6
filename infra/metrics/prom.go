package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/lineauction/core/events"
	coremetrics "github.com/kilianp07/lineauction/core/metrics"
)

// PromSink exports outcome and payout records as Prometheus metrics.
type PromSink struct {
	outcomes *prometheus.CounterVec
	winner   *prometheus.GaugeVec
	credited *prometheus.CounterVec
	distance prometheus.Counter
}

// NewPromSinkWithRegistry registers the sink collectors on reg. A nil reg
// defaults to the global registerer. Registering twice reuses the existing
// collectors.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_outcomes_total",
			Help: "Pool resolutions by result",
		}, []string{"line", "frame", "result"}),
		winner: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "auction_pool_winner_id",
			Help: "Id of the active schedule per pool, 0 when none",
		}, []string{"line", "frame"}),
		credited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_credited_units_total",
			Help: "Currency units credited by the payout ticker",
		}, []string{"frame"}),
		distance: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payout_vehicle_distance_km_total",
			Help: "Distance accrued on assigned vehicles",
		}),
	}
	var err error
	if s.outcomes, err = register(reg, s.outcomes); err != nil {
		return nil, err
	}
	if s.winner, err = register(reg, s.winner); err != nil {
		return nil, err
	}
	if s.credited, err = register(reg, s.credited); err != nil {
		return nil, err
	}
	if s.distance, err = register(reg, s.distance); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordOutcome counts the resolution and tracks the pool winner.
func (s *PromSink) RecordOutcome(o events.Outcome) error {
	result := "no_winner"
	if o.HasWinner() {
		result = "winner"
	}
	s.outcomes.WithLabelValues(o.Pool.Line, string(o.Pool.Frame), result).Inc()
	s.winner.WithLabelValues(o.Pool.Line, string(o.Pool.Frame)).Set(float64(o.WinnerID))
	return nil
}

// RecordPayout adds the credited amount and distance.
func (s *PromSink) RecordPayout(p coremetrics.PayoutRecord) error {
	s.credited.WithLabelValues(string(p.Pool.Frame)).Add(float64(p.Amount))
	s.distance.Add(float64(p.DistanceKM))
	return nil
}
