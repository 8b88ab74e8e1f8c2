package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMatchingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMatchingMetrics(reg)
	m.ObserveRun("exact", 0.02)
	m.ObserveWriteFailure()
	m.ObserveContactDecision(true)
	m.ObserveContactDecision(false)
}

func TestMatchingMetricsNilSafe(t *testing.T) {
	var m *MatchingMetrics
	m.ObserveRun("none", 0.1)
	m.ObserveWriteFailure()
	m.ObserveContactDecision(true)
}

func TestNotifyMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNotifyMetrics(reg)
	m.ObserveEmail("match_summary", nil)
	m.ObserveEmail("contact_request", errors.New("boom"))

	var nilMetrics *NotifyMetrics
	nilMetrics.ObserveEmail("match_summary", nil)
}

func TestEventMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEventMetrics(reg)
	m.ObserveDelivery("match.summary.computed", nil)
	m.ObserveDelivery("match.summary.computed", errors.New("boom"))

	var nilMetrics *EventMetrics
	nilMetrics.ObserveDelivery("x", nil)
}

func TestStatsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMatchingMetrics(reg)
	m.ObserveRun("exact", 0.01)
	m.ObserveRun("exact", 0.02)
	m.ObserveRun("partial", 0.01)

	h := NewStatsHandler(reg)
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	samples, ok := resp.Stats["praxisfinder_matching_runs_total"]
	if !ok {
		t.Fatal("expected matching runs family in stats")
	}
	total := 0.0
	for _, s := range samples {
		total += s.Value
	}
	if total != 3 {
		t.Fatalf("expected 3 runs recorded, got %v", total)
	}
}
