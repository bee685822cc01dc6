package duty

import (
	"fmt"

	"github.com/kilianp07/lineauction/core/model"
)

// GenerateSlots returns the departures from start to end inclusive, every
// frequency minutes. When end is not after start the window is treated as
// crossing midnight. Returned clocks are monotonic and may exceed one day;
// use Clock.String for wall-clock rendering.
func GenerateSlots(start, end model.Clock, frequency int) ([]model.Clock, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("frequency must be positive, got %d", frequency)
	}
	if end <= start {
		end += model.MinutesPerDay
	}
	slots := make([]model.Clock, 0, int(end-start)/frequency+1)
	for t := start; t <= end; t += model.Clock(frequency) {
		slots = append(slots, t)
	}
	return slots, nil
}

// FormatSlots renders slots as HH:MM strings.
func FormatSlots(slots []model.Clock) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}
