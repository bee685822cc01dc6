package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lineauction/core/model"
)

// Fixtures holds collaborator records loaded by the seed command and tests.
type Fixtures struct {
	Lines    []model.Line    `yaml:"lines"`
	Vehicles []model.Vehicle `yaml:"vehicles"`
	Accounts []model.Account `yaml:"accounts"`
}

// LoadFixtures reads a YAML fixture file.
func LoadFixtures(path string) (Fixtures, error) {
	var f Fixtures
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, v := range f.Vehicles {
		if v.Status == "" {
			f.Vehicles[i].Status = model.VehicleReady
		}
	}
	return f, nil
}

// Seed upserts the fixtures in one transaction.
func Seed(ctx context.Context, s Store, f Fixtures) error {
	return s.Tx(ctx, func(tx Tx) error {
		for _, l := range f.Lines {
			if err := tx.UpsertLine(ctx, l); err != nil {
				return fmt.Errorf("line %s: %w", l.Name, err)
			}
		}
		for _, v := range f.Vehicles {
			if err := tx.UpsertVehicle(ctx, v); err != nil {
				return fmt.Errorf("vehicle %s: %w", v.Plate, err)
			}
		}
		for _, a := range f.Accounts {
			if err := tx.UpsertAccount(ctx, a); err != nil {
				return fmt.Errorf("account %s: %w", a.Username, err)
			}
		}
		return nil
	})
}
