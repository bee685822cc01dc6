package monitoring

import (
	"errors"
	"testing"
)

func TestGlobalMonitorRecords(t *testing.T) {
	rec := &Recorder{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })

	CaptureException(errors.New("boom"), map[string]string{"pool": "L1/midday"})
	Init(nil)
	got := rec.Captures()
	if len(got) != 1 {
		t.Fatalf("expected 1 capture, got %d", len(got))
	}
	if got[0].Tags["pool"] != "L1/midday" {
		t.Fatalf("tags not kept: %v", got[0].Tags)
	}
	if Current() != rec {
		t.Fatalf("nil Init must not replace the monitor")
	}
}
