package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/model"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadDefaultsVehicleStatus(t *testing.T) {
	sc, err := Load("intensity.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, sc.Fixtures.Vehicles)
	for _, v := range sc.Fixtures.Vehicles {
		assert.Equal(t, model.VehicleReady, v.Status, v.Plate)
	}
	assert.Equal(t, model.StatusActive, sc.Expected.Statuses["a"])
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("steps: []\n"), 0o644))
	_, err = Load(unnamed)
	assert.ErrorContains(t, err, "name is required")
}
