package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/factory"
	"github.com/kilianp07/lineauction/core/store"
	"github.com/kilianp07/lineauction/core/store/storetest"
)

func openSQLite(t *testing.T) store.Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "la.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, openSQLite)
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "la.db")
	s, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	s, err = Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRegisteredBackends(t *testing.T) {
	s, err := store.New(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"dsn": filepath.Join(t.TempDir(), "x.db")}})
	require.NoError(t, err)
	assert.IsType(t, &Store{}, s)
	require.NoError(t, s.Close())

	_, err = store.New(factory.ModuleConfig{Type: "sqlite"})
	assert.Error(t, err, "dsn is required")
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := `UPDATE t SET a = ? WHERE b = ? AND c = ?`
	assert.Equal(t, q, rebind(DriverSQLite, q))
	assert.Equal(t, `UPDATE t SET a = $1 WHERE b = $2 AND c = $3`, rebind(DriverPostgres, q))
}
