// Package bidcap computes the maximum price a schedule may bid for a line
// frame. The cap grows linearly with service intensity and is scaled by the
// frame's price multiplier.
package bidcap

import (
	"math"

	"github.com/kilianp07/lineauction/core/model"
)

// Params holds the constants of the cap formula.
type Params struct {
	Base         float64 `json:"base"`
	K            float64 `json:"k"`
	IntensityRef float64 `json:"intensity_ref"`
}

// DefaultParams returns the standard cap constants.
func DefaultParams() Params {
	return Params{Base: 10000, K: 10000, IntensityRef: 4.0}
}

// Calculator evaluates the cap formula against a frame table.
type Calculator struct {
	params Params
	frames model.FrameTable
}

// New returns a Calculator. Zero-valued params fall back to the defaults.
func New(p Params, frames model.FrameTable) Calculator {
	d := DefaultParams()
	if p.Base == 0 {
		p.Base = d.Base
	}
	if p.K == 0 {
		p.K = d.K
	}
	if p.IntensityRef <= 0 {
		p.IntensityRef = d.IntensityRef
	}
	return Calculator{params: p, frames: frames}
}

// Cap returns the bid ceiling for frequency (minutes, clamped to >= 1) in
// frame. An empty or unknown frame uses a multiplier of 1. The result is
// rounded to the cent.
func (c Calculator) Cap(frequency int, frame model.Frame) float64 {
	return c.CapForIntensity(model.Intensity(frequency), frame)
}

// CapForIntensity evaluates the formula for an already computed intensity.
func (c Calculator) CapForIntensity(intensity float64, frame model.Frame) float64 {
	base := c.params.Base + c.params.K*(intensity/c.params.IntensityRef)
	return math.Round(base*c.frames.Multiplier(frame)*100) / 100
}

// Allows reports whether bid is within the cap.
func (c Calculator) Allows(bid int64, frequency int, frame model.Frame) bool {
	return float64(bid) <= c.Cap(frequency, frame)
}

// Entry is one row of a cap table.
type Entry struct {
	Frame model.Frame `json:"frame"`
	Cap   float64     `json:"cap"`
}

// Table lists the cap for frequency in every known frame.
func (c Calculator) Table(frequency int) []Entry {
	specs := c.frames.Specs()
	out := make([]Entry, 0, len(specs))
	for _, s := range specs {
		out = append(out, Entry{Frame: s.Name, Cap: c.Cap(frequency, s.Name)})
	}
	return out
}
