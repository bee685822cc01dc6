// Package scenarios replays scripted auction histories against the real
// services on an in-memory store and checks the resulting state.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
)

// Step is one operation of a scenario. Op selects which fields are read:
//
//	create     as, ref, line, frame, frequency, bid
//	assign     as, ref, plates (default: every required block from as's ready vehicles), count
//	frequency  ref, frequency
//	delete     as, ref
//	breakdown  plate
//	repair     plate
//	transfer   plate, as (seller), buyer, garage, price
//	payout     at (RFC3339)
type Step struct {
	Op        string   `yaml:"op"`
	As        string   `yaml:"as,omitempty"`
	Ref       string   `yaml:"ref,omitempty"`
	Line      string   `yaml:"line,omitempty"`
	Frame     string   `yaml:"frame,omitempty"`
	Frequency int      `yaml:"frequency,omitempty"`
	Bid       int64    `yaml:"bid,omitempty"`
	Plates    []string `yaml:"plates,omitempty"`
	Count     int      `yaml:"count,omitempty"`
	Plate     string   `yaml:"plate,omitempty"`
	Buyer     string   `yaml:"buyer,omitempty"`
	Garage    int64    `yaml:"garage,omitempty"`
	Price     int64    `yaml:"price,omitempty"`
	At        string   `yaml:"at,omitempty"`
	// Error is the expected failure kind, e.g. "conflict". Empty means the
	// step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Expected is the state checked after the last step. Winners maps
// "line/frame" to the ref of the active schedule, or "" for none.
type Expected struct {
	Statuses  map[string]model.ScheduleStatus `yaml:"statuses,omitempty"`
	Winners   map[string]string               `yaml:"winners,omitempty"`
	Balances  map[string]int64                `yaml:"balances,omitempty"`
	Distances map[string]int64                `yaml:"distances,omitempty"`
	Vehicles  map[string]model.VehicleStatus  `yaml:"vehicles,omitempty"`
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Fixtures    store.Fixtures `yaml:"fixtures"`
	Steps       []Step         `yaml:"steps"`
	Expected    Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	for i, v := range sc.Fixtures.Vehicles {
		if v.Status == "" {
			sc.Fixtures.Vehicles[i].Status = model.VehicleReady
		}
	}
	return &sc, nil
}
