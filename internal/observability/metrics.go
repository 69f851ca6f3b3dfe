package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the policy engine.
type Metrics struct {
	Registrations *prometheus.CounterVec // labels: outcome={created,already_settled,threshold_too_low,payout_too_high,error}
	Evaluations   *prometheus.CounterVec // labels: outcome={triggered,condition_not_met,already_settled,not_registered,data_source_error,payout_error,error}
	PolicySettled prometheus.Gauge

	// Data source metrics.
	RainfallMm         prometheus.Histogram
	DataSourceDuration prometheus.Histogram

	// Payout metrics.
	Payouts      prometheus.Counter
	PayoutTokens prometheus.Counter

	Notifications *prometheus.CounterVec // labels: event, outcome={sent,error}
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Registrations,
		m.Evaluations,
		m.PolicySettled,
		m.RainfallMm,
		m.DataSourceDuration,
		m.Payouts,
		m.PayoutTokens,
		m.Notifications,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_insurance",
			Name:      "registrations_total",
			Help:      "Policy registration attempts by outcome.",
		}, []string{"outcome"}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_insurance",
			Name:      "evaluations_total",
			Help:      "Policy evaluation attempts by outcome.",
		}, []string{"outcome"}),
		PolicySettled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rain_insurance",
			Name:      "policy_settled",
			Help:      "1 once the policy has paid out, 0 otherwise.",
		}),
		RainfallMm: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rain_insurance",
			Name:      "rainfall_mm",
			Help:      "Hourly rainfall readings returned by the data source.",
			Buckets:   []float64{0, 0.1, 0.5, 1, 2.5, 5, 10, 25, 50},
		}),
		DataSourceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rain_insurance",
			Name:      "data_source_duration_seconds",
			Help:      "Rainfall data source request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Payouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_insurance",
			Name:      "payouts_total",
			Help:      "Successful payout transfers.",
		}),
		PayoutTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_insurance",
			Name:      "payout_tokens_total",
			Help:      "Tokens transferred to beneficiaries.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_insurance",
			Name:      "notifications_total",
			Help:      "Notification deliveries by event and outcome.",
		}, []string{"event", "outcome"}),
	}
}
