package metrics

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// StatsHandler serves a JSON digest of the application's own metric families
// for the admin dashboard, without requiring a Prometheus server.
type StatsHandler struct {
	gatherer prometheus.Gatherer
}

// NewStatsHandler creates a stats handler over the given gatherer. A nil
// gatherer falls back to the default registry.
func NewStatsHandler(g prometheus.Gatherer) *StatsHandler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &StatsHandler{gatherer: g}
}

// StatSample is one labeled series value.
type StatSample struct {
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// StatsResponse maps metric family name to its samples.
type StatsResponse struct {
	Stats map[string][]StatSample `json:"stats"`
}

// ServeHTTP handles GET /admin/stats requests
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	families, err := h.gatherer.Gather()
	if err != nil {
		http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{Stats: make(map[string][]StatSample)}
	for _, fam := range families {
		name := fam.GetName()
		if !strings.HasPrefix(name, "praxisfinder_") {
			continue
		}
		for _, m := range fam.GetMetric() {
			resp.Stats[name] = append(resp.Stats[name], sampleFromMetric(fam.GetType(), m))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func sampleFromMetric(t dto.MetricType, m *dto.Metric) StatSample {
	s := StatSample{}
	if len(m.GetLabel()) > 0 {
		s.Labels = make(map[string]string, len(m.GetLabel()))
		for _, lp := range m.GetLabel() {
			s.Labels[lp.GetName()] = lp.GetValue()
		}
	}
	switch t {
	case dto.MetricType_COUNTER:
		s.Value = m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		s.Value = m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		s.Value = float64(m.GetHistogram().GetSampleCount())
	case dto.MetricType_SUMMARY:
		s.Value = float64(m.GetSummary().GetSampleCount())
	}
	return s
}
