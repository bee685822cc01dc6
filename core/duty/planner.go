package duty

import (
	"fmt"
	"sort"

	"github.com/kilianp07/lineauction/core/model"
)

// Rules are the labour constraints applied while packing departures.
type Rules struct {
	MaxContinuousMinutes int `json:"max_continuous_minutes" yaml:"max_continuous_minutes"`
	BreakMinutes         int `json:"break_minutes" yaml:"break_minutes"`
}

// DefaultRules returns the standard 240 minute work limit with 30 minute breaks.
func DefaultRules() Rules {
	return Rules{MaxContinuousMinutes: 240, BreakMinutes: 30}
}

// Travel holds the line travel times in minutes.
type Travel struct {
	Garage int `json:"travel_time_garage" yaml:"travel_time_garage"`
	Line   int `json:"travel_time_line" yaml:"travel_time_line"`
}

// TravelFor extracts travel times from a line record.
func TravelFor(l model.Line) Travel {
	return Travel{Garage: l.GarageTravel, Line: l.LineTravel}
}

// Break is a rest period inside a duty.
type Break struct {
	Start model.Clock `json:"start" yaml:"start"`
	End   model.Clock `json:"end" yaml:"end"`
}

// Duty is one vehicle shift.
type Duty struct {
	Block      int           `json:"block" yaml:"block"`
	Start      model.Clock   `json:"duty_start" yaml:"duty_start"`
	End        model.Clock   `json:"duty_end" yaml:"duty_end"`
	Departures []model.Clock `json:"departures" yaml:"departures"`
	Breaks     []Break       `json:"breaks" yaml:"breaks"`
	// Vehicle is the plate assigned to the block, empty when unfilled.
	Vehicle string `json:"assigned_vehicle,omitempty" yaml:"assigned_vehicle,omitempty"`
}

// Minutes returns the duty length including garage travel.
func (d Duty) Minutes() int { return int(d.End - d.Start) }

// Plan is the planner output for one schedule window.
type Plan struct {
	Slots  []model.Clock `json:"slots" yaml:"slots"`
	Duties []Duty        `json:"duties" yaml:"duties"`
}

// Filled reports how many duties have a vehicle.
func (p Plan) Filled() int {
	n := 0
	for _, d := range p.Duties {
		if d.Vehicle != "" {
			n++
		}
	}
	return n
}

// Planner packs departures into duties.
type Planner struct {
	Rules Rules
}

// NewPlanner returns a planner; zero rules fall back to DefaultRules.
func NewPlanner(r Rules) Planner {
	d := DefaultRules()
	if r.MaxContinuousMinutes <= 0 {
		r.MaxContinuousMinutes = d.MaxContinuousMinutes
	}
	if r.BreakMinutes <= 0 {
		r.BreakMinutes = d.BreakMinutes
	}
	return Planner{Rules: r}
}

// PlanWindow generates the slots of a window and packs them.
func (p Planner) PlanWindow(start, end model.Clock, frequency int, tr Travel) (Plan, error) {
	slots, err := GenerateSlots(start, end, frequency)
	if err != nil {
		return Plan{}, err
	}
	return p.Pack(slots, tr)
}

// PlanSchedule plans s on line l.
func (p Planner) PlanSchedule(s model.Schedule, l model.Line) (Plan, error) {
	return p.PlanWindow(s.Start, s.End, s.Frequency, TravelFor(l))
}

// shift is the mutable arena record of a duty under construction.
type shift struct {
	departures    []model.Clock
	breaks        []Break
	start         model.Clock
	shiftStart    model.Clock
	lastTripEnd   model.Clock
	nextAvailable model.Clock
}

// Pack assigns chronologically ordered slots to duties. Each slot goes to
// the earliest available duty that can legally take it; a new duty is
// opened when none can.
func (p Planner) Pack(slots []model.Clock, tr Travel) (Plan, error) {
	if tr.Garage < 0 || tr.Line < 0 {
		return Plan{}, fmt.Errorf("travel times must not be negative")
	}
	roundTrip := model.Clock(2 * tr.Line)
	maxWork := model.Clock(p.Rules.MaxContinuousMinutes)
	rest := model.Clock(p.Rules.BreakMinutes)

	var arena []shift
	var order []int
	for i, dep := range slots {
		if i > 0 && dep < slots[i-1] {
			return Plan{}, fmt.Errorf("slots out of order at %s", dep)
		}
		sort.SliceStable(order, func(a, b int) bool {
			return arena[order[a]].nextAvailable < arena[order[b]].nextAvailable
		})
		assigned := false
		for _, idx := range order {
			d := &arena[idx]
			if dep < d.nextAvailable {
				continue
			}
			if dep-d.shiftStart >= maxWork {
				if dep-d.lastTripEnd < rest {
					continue
				}
				br := Break{Start: d.lastTripEnd, End: d.lastTripEnd + rest}
				d.breaks = append(d.breaks, br)
				d.shiftStart = br.End
				if br.End > d.nextAvailable {
					d.nextAvailable = br.End
				}
				if dep < d.nextAvailable {
					continue
				}
			}
			d.departures = append(d.departures, dep)
			d.lastTripEnd = dep + roundTrip
			d.nextAvailable = d.lastTripEnd
			assigned = true
			break
		}
		if !assigned {
			start := dep - model.Clock(tr.Garage)
			arena = append(arena, shift{
				departures:    []model.Clock{dep},
				start:         start,
				shiftStart:    start,
				lastTripEnd:   dep + roundTrip,
				nextAvailable: dep + roundTrip,
			})
			order = append(order, len(arena)-1)
		}
	}

	plan := Plan{Slots: append([]model.Clock(nil), slots...), Duties: make([]Duty, len(arena))}
	for i, d := range arena {
		plan.Duties[i] = Duty{
			Block:      i,
			Start:      d.start,
			End:        d.lastTripEnd + model.Clock(tr.Garage),
			Departures: d.departures,
			Breaks:     append([]Break{}, d.breaks...),
		}
	}
	return plan, nil
}

// Overlay attaches persisted vehicle plates to duties by block index.
// Assignments for blocks the plan does not have are ignored.
func Overlay(p Plan, assignments []model.Assignment) Plan {
	byBlock := make(map[int]string, len(assignments))
	for _, a := range assignments {
		byBlock[a.Block] = a.Plate
	}
	out := Plan{Slots: p.Slots, Duties: make([]Duty, len(p.Duties))}
	for i, d := range p.Duties {
		d.Vehicle = byBlock[d.Block]
		out.Duties[i] = d
	}
	return out
}
