//go:build integration

package sqlstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/lineauction/core/store"
	"github.com/kilianp07/lineauction/core/store/storetest"
)

// TestPostgresStore runs the store checks against a disposable PostgreSQL.
func TestPostgresStore(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "la",
				"POSTGRES_USER":     "la",
				"POSTGRES_DB":       "la",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		// each subtest gets its own database so state does not leak
		n++
		admin, err := Open(ctx, DriverPostgres, fmt.Sprintf("postgres://la:la@%s:%s/la?sslmode=disable", host, port.Port()))
		require.NoError(t, err)
		db := fmt.Sprintf("la_%d", n)
		_, err = admin.db.ExecContext(ctx, "CREATE DATABASE "+db)
		require.NoError(t, err)
		require.NoError(t, admin.Close())

		s, err := Open(ctx, DriverPostgres, fmt.Sprintf("postgres://la:la@%s:%s/%s?sslmode=disable", host, port.Port(), db))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
