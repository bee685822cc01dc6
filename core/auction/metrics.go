package auction

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	cascadeFailures    prometheus.Counter
)

func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter) {
	res := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_resolutions_total",
			Help: "Pool resolutions by trigger and result",
		},
		[]string{"trigger", "result"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_resolution_duration_seconds",
			Help:    "Time spent resolving one pool, lock wait included",
			Buckets: prometheus.DefBuckets,
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_cascade_failures_total",
			Help: "Pool resolutions that failed during a cascade",
		},
	)
	return res, dur, fail
}

func init() {
	resolutionsTotal, resolutionDuration, cascadeFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers auction metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(resolutionsTotal, resolutionDuration, cascadeFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	resolutionsTotal, resolutionDuration, cascadeFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
