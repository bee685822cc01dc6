package duty

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates figures about a plan.
type Summary struct {
	Duties            int     `json:"duties" yaml:"duties"`
	Departures        int     `json:"departures" yaml:"departures"`
	Filled            int     `json:"filled" yaml:"filled"`
	MeanDutyMinutes   float64 `json:"mean_duty_minutes" yaml:"mean_duty_minutes"`
	StdDevDutyMinutes float64 `json:"stddev_duty_minutes" yaml:"stddev_duty_minutes"`
	LongestDuty       float64 `json:"longest_duty_minutes" yaml:"longest_duty_minutes"`
	BreakMinutes      int     `json:"break_minutes" yaml:"break_minutes"`
}

// Summarize computes duty length statistics for p.
func Summarize(p Plan) Summary {
	s := Summary{Duties: len(p.Duties), Departures: len(p.Slots), Filled: p.Filled()}
	if len(p.Duties) == 0 {
		return s
	}
	lengths := make([]float64, len(p.Duties))
	for i, d := range p.Duties {
		lengths[i] = float64(d.Minutes())
		for _, b := range d.Breaks {
			s.BreakMinutes += int(b.End - b.Start)
		}
	}
	s.MeanDutyMinutes, s.StdDevDutyMinutes = stat.MeanStdDev(lengths, nil)
	if len(lengths) < 2 {
		s.StdDevDutyMinutes = 0
	}
	s.LongestDuty = floats.Max(lengths)
	return s
}
