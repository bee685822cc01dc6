package model

import (
	"fmt"
	"sort"
	"time"
)

// Frame names one of the daily auction windows.
type Frame string

const (
	FrameMorning   Frame = "morning"
	FrameMidday    Frame = "midday"
	FrameAfternoon Frame = "afternoon"
	FrameEvening   Frame = "evening"
	FrameNight     Frame = "night"
)

// FrameSpec describes the bounds and price multiplier of a frame.
type FrameSpec struct {
	Name       Frame   `json:"name"`
	Start      Clock   `json:"start"`
	End        Clock   `json:"end"`
	Multiplier float64 `json:"multiplier"`
}

// Minutes returns the length of the frame.
func (f FrameSpec) Minutes() int { return int(f.End - f.Start) }

// Contains reports whether the minute-of-day m falls inside [Start, End).
func (f FrameSpec) Contains(m Clock) bool { return f.Start <= m && m < f.End }

// FrameTable is the immutable set of frames known to the process. The zero
// value is empty; use DefaultFrames or NewFrameTable.
type FrameTable struct {
	specs []FrameSpec
	index map[Frame]int
}

// DefaultFrames returns the five standard frames.
func DefaultFrames() FrameTable {
	t, err := NewFrameTable([]FrameSpec{
		{Name: FrameMorning, Start: MustClock("04:00"), End: MustClock("08:00"), Multiplier: 1.00},
		{Name: FrameMidday, Start: MustClock("08:00"), End: MustClock("12:00"), Multiplier: 1.15},
		{Name: FrameAfternoon, Start: MustClock("12:00"), End: MustClock("16:00"), Multiplier: 1.20},
		{Name: FrameEvening, Start: MustClock("16:00"), End: MustClock("20:00"), Multiplier: 1.20},
		{Name: FrameNight, Start: MustClock("20:00"), End: MustClock("24:00"), Multiplier: 1.05},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// NewFrameTable validates specs and builds a table ordered by start time.
func NewFrameTable(specs []FrameSpec) (FrameTable, error) {
	if len(specs) == 0 {
		return FrameTable{}, fmt.Errorf("frame table is empty")
	}
	sorted := append([]FrameSpec(nil), specs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	index := make(map[Frame]int, len(sorted))
	for i, s := range sorted {
		if s.Name == "" {
			return FrameTable{}, fmt.Errorf("frame %d has no name", i)
		}
		if _, dup := index[s.Name]; dup {
			return FrameTable{}, fmt.Errorf("duplicate frame %s", s.Name)
		}
		if s.Start < 0 || s.End > MinutesPerDay || s.Start >= s.End {
			return FrameTable{}, fmt.Errorf("frame %s has invalid bounds %s-%s", s.Name, s.Start, s.End)
		}
		if s.Multiplier <= 0 {
			return FrameTable{}, fmt.Errorf("frame %s multiplier must be positive", s.Name)
		}
		if i > 0 && sorted[i-1].End > s.Start {
			return FrameTable{}, fmt.Errorf("frame %s overlaps %s", s.Name, sorted[i-1].Name)
		}
		index[s.Name] = i
	}
	return FrameTable{specs: sorted, index: index}, nil
}

// Lookup returns the spec for name.
func (t FrameTable) Lookup(name Frame) (FrameSpec, bool) {
	i, ok := t.index[name]
	if !ok {
		return FrameSpec{}, false
	}
	return t.specs[i], true
}

// Valid reports whether name is a known frame.
func (t FrameTable) Valid(name Frame) bool {
	_, ok := t.index[name]
	return ok
}

// At returns the frame containing the given minute of day.
func (t FrameTable) At(m Clock) (FrameSpec, bool) {
	m = m.Normalize()
	for _, s := range t.specs {
		if s.Contains(m) {
			return s, true
		}
	}
	return FrameSpec{}, false
}

// AtTime returns the frame containing the wall-clock time of ts.
func (t FrameTable) AtTime(ts time.Time) (FrameSpec, bool) {
	return t.At(Clock(ts.Hour()*60 + ts.Minute()))
}

// Specs returns a copy of all frames ordered by start.
func (t FrameTable) Specs() []FrameSpec {
	return append([]FrameSpec(nil), t.specs...)
}

// Multiplier returns the price multiplier of name, or 1 when the frame is
// empty or unknown.
func (t FrameTable) Multiplier(name Frame) float64 {
	if name == "" {
		return 1
	}
	s, ok := t.Lookup(name)
	if !ok {
		return 1
	}
	return s.Multiplier
}
