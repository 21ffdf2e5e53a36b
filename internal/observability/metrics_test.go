package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/tickets/:id", "PATCH", "VALIDATION_FAILED")

	snap := m.Snapshot()
	if got := snap.Requests["/api/tickets|GET|200"]; got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if got := snap.AvgLatencyMS["/api/tickets|GET|200"]; got != 20 {
		t.Errorf("avg latency = %d, want 20", got)
	}
	if got := snap.Errors["/api/tickets/:id|PATCH|VALIDATION_FAILED"]; got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); len(snap.Requests) != 0 {
		t.Fatalf("nil metrics snapshot = %+v", snap)
	}
}
