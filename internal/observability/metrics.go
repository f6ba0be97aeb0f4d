package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cloudseed"

// Metrics holds the Prometheus counters, histograms, and gauges for the forecast collector.
type Metrics struct {
	ForecastRuns   prometheus.Counter
	RefreshErrors  prometheus.Counter
	HoursEvaluated prometheus.Counter

	ProviderRequests *prometheus.CounterVec // labels: outcome={success,error}

	ViableHours      *prometheus.GaugeVec // labels: zone
	BestScore        *prometheus.GaugeVec // labels: zone
	CollectorRunning prometheus.Gauge

	RefreshDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		ForecastRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_runs_total",
			Help:      "Total completed forecast evaluations.",
		}),
		RefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_errors_total",
			Help:      "Total failed forecast refreshes.",
		}),
		HoursEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hours_evaluated_total",
			Help:      "Total forecast hours scored for seedability.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Weather provider requests by outcome.",
		}, []string{"outcome"}),
		ViableHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "viable_hours",
			Help:      "Viable seeding hours in the latest forecast window.",
		}, []string{"zone"}),
		BestScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_seedability_score",
			Help:      "Highest seedability score in the latest forecast window.",
		}, []string{"zone"}),
		CollectorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collector_running",
			Help:      "1 when the forecast collector is active, 0 when stopped.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a fetch-evaluate-store-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ForecastRuns,
		m.RefreshErrors,
		m.HoursEvaluated,
		m.ProviderRequests,
		m.ViableHours,
		m.BestScore,
		m.CollectorRunning,
		m.RefreshDuration,
	}
}

// NewMetrics creates and registers all collector metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewUnregisteredMetrics creates Metrics that are not exported anywhere.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() (*Metrics, *prometheus.Registry) {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return m, reg
}
