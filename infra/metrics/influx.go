package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/lineauction/core/events"
	coremetrics "github.com/kilianp07/lineauction/core/metrics"
	"github.com/kilianp07/lineauction/infra/logger"
)

// InfluxConfig selects the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes records to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the configured endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the instance and returns a NopSink when
// the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordOutcome writes an auction_outcome point.
func (s *InfluxSink) RecordOutcome(o events.Outcome) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("auction_outcome").
		AddTag("line", o.Pool.Line).
		AddTag("frame", string(o.Pool.Frame)).
		AddTag("trigger", o.Trigger).
		AddTag("has_winner", strconv.FormatBool(o.HasWinner())).
		AddField("winner_id", o.WinnerID).
		AddField("candidates", o.Candidates).
		AddField("eligible", o.Eligible).
		AddField("duration_ms", float64(o.Duration.Microseconds())/1000).
		SetTime(o.At)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPayout writes a payout_credit point.
func (s *InfluxSink) RecordPayout(r coremetrics.PayoutRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("payout_credit").
		AddTag("line", r.Pool.Line).
		AddTag("frame", string(r.Pool.Frame)).
		AddTag("owner", r.Owner).
		AddField("schedule_id", r.ScheduleID).
		AddField("tick", r.Tick).
		AddField("amount", r.Amount).
		AddField("vehicles", r.Vehicles).
		AddField("distance_km", r.DistanceKM).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }
