package monitoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/config"
	coremon "github.com/kilianp07/lineauction/core/monitoring"
)

func TestEmptyDSNIsNop(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitorCapture(t *testing.T) {
	// a syntactically valid DSN; nothing is sent before Flush
	m, err := NewSentryMonitor(config.SentryConfig{DSN: "https://public@example.invalid/1", Environment: "test"})
	require.NoError(t, err)
	m.CaptureException(errors.New("cascade failed"), map[string]string{"pool": "L1/night"})
	m.CaptureException(nil, nil)
}
