package metrics

import "github.com/prometheus/client_golang/prometheus"

// MatchingMetrics exposes counters/histograms for the matching engine.
type MatchingMetrics struct {
	runsTotal        *prometheus.CounterVec
	writeFailures    prometheus.Counter
	runDuration      prometheus.Histogram
	contactDecisions *prometheus.CounterVec
}

func NewMatchingMetrics(reg prometheus.Registerer) *MatchingMetrics {
	m := &MatchingMetrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxisfinder",
			Subsystem: "matching",
			Name:      "runs_total",
			Help:      "Total orchestration runs by result quality",
		}, []string{"quality"}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "praxisfinder",
			Subsystem: "matching",
			Name:      "match_write_failures_total",
			Help:      "Match rows that could not be persisted",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "praxisfinder",
			Subsystem: "matching",
			Name:      "run_duration_seconds",
			Help:      "Duration of orchestration runs",
			Buckets:   prometheus.DefBuckets,
		}),
		contactDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxisfinder",
			Subsystem: "matching",
			Name:      "contact_decisions_total",
			Help:      "Contact rate limit decisions",
		}, []string{"allowed"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.runsTotal, m.writeFailures, m.runDuration, m.contactDecisions)
	return m
}

func (m *MatchingMetrics) ObserveRun(quality string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(quality).Inc()
	m.runDuration.Observe(seconds)
}

func (m *MatchingMetrics) ObserveWriteFailure() {
	if m == nil {
		return
	}
	m.writeFailures.Inc()
}

func (m *MatchingMetrics) ObserveContactDecision(allowed bool) {
	if m == nil {
		return
	}
	label := "false"
	if allowed {
		label = "true"
	}
	m.contactDecisions.WithLabelValues(label).Inc()
}

// NotifyMetrics counts outgoing notifications.
type NotifyMetrics struct {
	emailsTotal *prometheus.CounterVec
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxisfinder",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Total emails attempted by kind and outcome",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.emailsTotal)
	return m
}

func (m *NotifyMetrics) ObserveEmail(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.emailsTotal.WithLabelValues(kind, status).Inc()
}

// EventMetrics counts outbox deliveries.
type EventMetrics struct {
	deliveriesTotal *prometheus.CounterVec
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	m := &EventMetrics{
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxisfinder",
			Subsystem: "events",
			Name:      "deliveries_total",
			Help:      "Outbox delivery attempts by event type and outcome",
		}, []string{"type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.deliveriesTotal)
	return m
}

func (m *EventMetrics) ObserveDelivery(eventType string, err error) {
	if m == nil {
		return
	}
	status := "delivered"
	if err != nil {
		status = "failed"
	}
	m.deliveriesTotal.WithLabelValues(eventType, status).Inc()
}
