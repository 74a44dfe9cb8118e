package generation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	pollChecks prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wardrobe",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Outfit image generations by provider and outcome.",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wardrobe",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Outfit image generation latency.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"provider"}),
		pollChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wardrobe",
			Subsystem: "generation",
			Name:      "job_checks_total",
			Help:      "Status checks sent to the job-queue provider.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.pollChecks)
	}
	return m
}

func (m *Metrics) observe(kind Kind, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case IsConfigError(err):
		outcome = "config_error"
	case IsContractError(err):
		outcome = "contract_error"
	case IsTransportError(err):
		outcome = "transport_error"
	default:
		outcome = "error"
	}
	m.requests.WithLabelValues(string(kind), outcome).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) pollAttempt() {
	if m == nil {
		return
	}
	m.pollChecks.Inc()
}
