package metrics

import "github.com/prometheus/client_golang/prometheus"

// ActionMetrics exposes counters/histograms for the portal action endpoints.
type ActionMetrics struct {
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
}

func NewActionMetrics(reg prometheus.Registerer) *ActionMetrics {
	m := &ActionMetrics{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicvoice",
			Subsystem: "actions",
			Name:      "total",
			Help:      "Total portal actions by outcome",
		}, []string{"action", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicvoice",
			Subsystem: "actions",
			Name:      "duration_seconds",
			Help:      "Latency of portal actions, dominated by browser driving",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"action"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.actionsTotal, m.actionDuration)
	return m
}

func (m *ActionMetrics) ObserveAction(action, outcome string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *ActionMetrics) ObserveDuration(action string, seconds float64) {
	if m == nil {
		return
	}
	m.actionDuration.WithLabelValues(action).Observe(seconds)
}
