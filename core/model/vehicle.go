package model

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	// VehicleReady vehicles sit in their garage and can be assigned.
	VehicleReady VehicleStatus = "ready"
	// VehicleInService vehicles are assigned to a schedule's duty block.
	VehicleInService VehicleStatus = "in_service"
	// VehicleMaintenance vehicles are broken down and cannot be assigned.
	VehicleMaintenance VehicleStatus = "maintenance"
)

// Vehicle holds the fields of a fleet vehicle the auction core reads and
// writes. Everything else about vehicles lives with the fleet collaborator.
type Vehicle struct {
	Plate      string        `json:"plate" yaml:"plate"`
	Owner      string        `json:"owner" yaml:"owner"`
	GarageID   int64         `json:"garage_id" yaml:"garage_id"`
	Status     VehicleStatus `json:"status" yaml:"status"`
	Line       string        `json:"line,omitempty" yaml:"line,omitempty"`
	DistanceKM int64         `json:"distance_km" yaml:"distance_km"`
}

// Assignable reports whether the vehicle may be put on a new duty block.
func (v Vehicle) Assignable() bool { return v.Status == VehicleReady }

// Line is a transit line serviced from one provider garage.
type Line struct {
	Name             string `json:"name" yaml:"name"`
	ProviderGarageID int64  `json:"provider_garage_id" yaml:"provider_garage_id"`
	// GarageTravel is the travel time in minutes between the garage and
	// the line terminus.
	GarageTravel int `json:"travel_time_garage" yaml:"travel_time_garage"`
	// LineTravel is the time in minutes of one traverse of the line.
	LineTravel int `json:"travel_time_line" yaml:"travel_time_line"`
}

// Account is a user balance ledger entry.
type Account struct {
	Username string `json:"username" yaml:"username"`
	Balance  int64  `json:"balance" yaml:"balance"`
}
