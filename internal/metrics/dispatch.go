package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mind-engage/everify-tester/internal/everify"
)

// DispatchMetrics counts eVerify exchanges by action and outcome.
type DispatchMetrics struct {
	ExchangesTotal   *prometheus.CounterVec
	ExchangeDuration *prometheus.HistogramVec
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		ExchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "everify",
			Name:      "exchanges_total",
			Help:      "Total number of eVerify exchanges by action and outcome.",
		}, []string{"action", "outcome"}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "everify",
			Name:      "exchange_duration_seconds",
			Help:      "Round-trip time of eVerify requests that reached the network.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}
	reg.MustRegister(m.ExchangesTotal, m.ExchangeDuration)
	return m
}

// Hook has the workspace.Hook signature.
func (m *DispatchMetrics) Hook(_ context.Context, _ string, r everify.Result) {
	m.ExchangesTotal.WithLabelValues(string(r.Action), string(r.Outcome)).Inc()
	switch r.Outcome {
	case everify.OutcomeNoCredential, everify.OutcomeBusy:
		return
	}
	m.ExchangeDuration.WithLabelValues(string(r.Action)).Observe(r.Duration.Seconds())
}

// RegisterWorkspaceGauge exposes the number of live workspaces.
func RegisterWorkspaceGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workspaces",
		Help:      "Number of in-memory tester workspaces.",
	}, func() float64 { return float64(count()) }))
}
