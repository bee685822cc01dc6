package payout

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ticksTotal       *prometheus.CounterVec
	creditedTotal    *prometheus.CounterVec
	scheduleFailures prometheus.Counter
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter) {
	ticks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_ticks_total",
			Help: "Payout firings by result",
		},
		[]string{"result"},
	)
	credited := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_credited_total",
			Help: "Currency units credited to schedule owners",
		},
		[]string{"frame"},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payout_schedule_failures_total",
			Help: "Schedules whose payout transaction failed",
		},
	)
	return ticks, credited, fail
}

func init() {
	ticksTotal, creditedTotal, scheduleFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers payout metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(ticksTotal, creditedTotal, scheduleFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	ticksTotal, creditedTotal, scheduleFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
