// Package metrics defines the sink contract that receives auction outcomes
// and payout credits. Concrete sinks live in infra/metrics and register
// themselves with the factory.
package metrics
