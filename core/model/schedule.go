package model

// ScheduleStatus is the auction state of a schedule.
type ScheduleStatus string

const (
	StatusPending ScheduleStatus = "pending"
	StatusActive  ScheduleStatus = "active"
	StatusLost    ScheduleStatus = "lost"
)

// Schedule is a bid for the right to operate a line inside one frame.
type Schedule struct {
	ID        int64          `json:"id"`
	Owner     string         `json:"owner"`
	LineName  string         `json:"line_name"`
	GarageID  int64          `json:"garage_id"`
	Frame     Frame          `json:"frame"`
	Start     Clock          `json:"start_time"`
	End       Clock          `json:"end_time"`
	Frequency int            `json:"frequency"`
	BidPrice  int64          `json:"bid_price"`
	Status    ScheduleStatus `json:"status"`
}

// Pool returns the contention pool the schedule competes in.
func (s Schedule) Pool() PoolKey { return PoolKey{Line: s.LineName, Frame: s.Frame} }

// Intensity returns trips per hour implied by the frequency. Frequencies
// below one minute are clamped to one.
func Intensity(frequency int) float64 {
	if frequency < 1 {
		frequency = 1
	}
	return 60.0 / float64(frequency)
}

// Assignment binds a duty block of a schedule to a vehicle plate.
type Assignment struct {
	ScheduleID int64  `json:"schedule_id"`
	Block      int    `json:"block"`
	Plate      string `json:"plate"`
}

// PoolKey identifies a (line, frame) contention pool.
type PoolKey struct {
	Line  string `json:"line"`
	Frame Frame  `json:"frame"`
}

func (k PoolKey) String() string { return k.Line + "/" + string(k.Frame) }
