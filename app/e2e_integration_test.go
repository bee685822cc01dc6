//go:build integration

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/schedule"
	"github.com/kilianp07/lineauction/internal/testutil"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServiceEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	broker, cleanup, err := testutil.StartMosquitto(ctx)
	require.NoError(t, err)
	defer cleanup()

	cfg := testConfig(t)
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "lineauction-e2e"
	cfg.Metrics.PrometheusAddr = freeAddr(t)
	require.NoError(t, cfg.Validate())

	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	seed(t, svc.Store)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Run(runCtx) }()

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-sub"))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	defer sub.Disconnect(100)

	msgs := make(chan []byte, 8)
	tok = sub.Subscribe("lineauction/outcomes/L1/midday", 1, func(_ paho.Client, m paho.Message) {
		msgs <- m.Payload()
	})
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	s, err := svc.Schedules.Create(ctx, "alice", schedule.CreateRequest{
		LineName: "L1", Frame: model.FrameMidday, Frequency: 60, BidPrice: 100,
	})
	require.NoError(t, err)
	plan, err := svc.Schedules.PlanDuties(ctx, s.ID)
	require.NoError(t, err)
	blocks := map[int]string{}
	for i := range plan.Duties {
		blocks[i] = fmt.Sprintf("A%d", i+1)
	}
	require.NoError(t, svc.Schedules.SaveManualAssignments(ctx, s.ID, "alice", blocks))

	deadline := time.After(10 * time.Second)
	for {
		var msg struct {
			WinnerID *int64 `json:"winner_id"`
			Trigger  string `json:"trigger"`
		}
		select {
		case raw := <-msgs:
			require.NoError(t, json.Unmarshal(raw, &msg))
			if msg.WinnerID == nil {
				continue
			}
			assert.Equal(t, s.ID, *msg.WinnerID)
			assert.Equal(t, "manual_assignment", msg.Trigger)
		case <-deadline:
			t.Fatal("no winning outcome published")
		}
		break
	}

	metricsCtx, mcancel := context.WithTimeout(ctx, testutil.MetricTimeout)
	defer mcancel()
	require.NoError(t, testutil.WaitForMetric(metricsCtx, "http://"+cfg.Metrics.PrometheusAddr+"/metrics",
		`auction_resolutions_total{result="winner",trigger="manual_assignment"}`))

	stop()
	require.NoError(t, <-done)
}
