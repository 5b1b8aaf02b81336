package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/curriculum/pkg/domain"
)

const namespace = "curriculum"

// Metrics holds the collectors updated by the trainer hooks.
type Metrics struct {
	registry *prometheus.Registry

	rounds   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	loss     *prometheus.GaugeVec
	budget   *prometheus.GaugeVec
	upper    *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg. A nil reg gets a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Training rounds by outcome.",
		}, []string{"run_id", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Wall time of one solver call.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"run_id"}),
		loss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "round_loss",
			Help:      "Final loss of the last completed round.",
		}, []string{"run_id"}),
		budget: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "iteration_budget",
			Help:      "Iteration budget of the round in progress.",
		}, []string{"run_id"}),
		upper: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "time_upper",
			Help:      "Upper time bound of the last completed round.",
		}, []string{"run_id"}),
	}
	reg.MustRegister(m.rounds, m.duration, m.loss, m.budget, m.upper)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRoundStart: func(_ context.Context, e *domain.RoundEvent) {
			m.budget.WithLabelValues(e.RunID).Set(float64(e.Budget))
		},
		OnRoundEnd: func(_ context.Context, e *domain.RoundEvent) {
			m.rounds.WithLabelValues(e.RunID, "ok").Inc()
			m.duration.WithLabelValues(e.RunID).Observe(e.Duration.Seconds())
			m.loss.WithLabelValues(e.RunID).Set(e.Loss)
			m.upper.WithLabelValues(e.RunID).Set(e.TimeUpper)
		},
		OnRoundFailed: func(_ context.Context, e *domain.RoundEvent) {
			m.rounds.WithLabelValues(e.RunID, "failed").Inc()
			m.duration.WithLabelValues(e.RunID).Observe(e.Duration.Seconds())
		},
	}
}
