package payout

import (
	"fmt"
	"time"
)

// Config controls the payout ticker.
type Config struct {
	Enabled           bool   `json:"enabled"`
	IntervalSeconds   int    `json:"interval_seconds"`
	TicksPerFrame     int    `json:"ticks_per_frame"`
	DistancePerTickKM int64  `json:"distance_per_tick_km"`
	Timezone          string `json:"timezone"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 600
	}
	if c.TicksPerFrame == 0 {
		c.TicksPerFrame = 24
	}
	if c.DistancePerTickKM == 0 {
		c.DistancePerTickKM = 10
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.IntervalSeconds < 0 {
		return fmt.Errorf("payout.interval_seconds must be positive")
	}
	if c.TicksPerFrame < 0 {
		return fmt.Errorf("payout.ticks_per_frame must be positive")
	}
	if c.DistancePerTickKM < 0 {
		return fmt.Errorf("payout.distance_per_tick_km must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("payout.timezone: %w", err)
	}
	return nil
}

// Interval returns the firing period.
func (c Config) Interval() time.Duration { return time.Duration(c.IntervalSeconds) * time.Second }

// Location resolves Timezone. Empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
