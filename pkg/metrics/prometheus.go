package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	admissionsTotal *prometheus.CounterVec
	advicesTotal    *prometheus.CounterVec
	circuitTripped  prometheus.Gauge
	refreshLatency  *prometheus.HistogramVec
	providerFetches *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		admissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgate_admissions_total",
				Help: "Order admission outcomes by code",
			},
			[]string{"code"},
		),
		advicesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgate_advices_total",
				Help: "Advices emitted by side and strategy",
			},
			[]string{"side", "strategy"},
		),
		circuitTripped: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskgate_circuit_tripped",
				Help: "1 when the circuit breaker is tripped",
			},
		),
		refreshLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskgate_refresh_duration_seconds",
				Help:    "Duration of scheduled refresh tasks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		),
		providerFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgate_sentiment_provider_fetches_total",
				Help: "Sentiment provider fetch outcomes",
			},
			[]string{"provider", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgate_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordAdmission records an admission outcome.
func (r *Recorder) RecordAdmission(code string) {
	r.admissionsTotal.WithLabelValues(code).Inc()
}

// RecordAdvice records an emitted advice.
func (r *Recorder) RecordAdvice(side, strategy string) {
	r.advicesTotal.WithLabelValues(side, strategy).Inc()
}

// RecordCircuitState records the current breaker state.
func (r *Recorder) RecordCircuitState(tripped bool) {
	if tripped {
		r.circuitTripped.Set(1)
	} else {
		r.circuitTripped.Set(0)
	}
}

// RecordRefreshLatency records a refresh-task run duration in seconds.
func (r *Recorder) RecordRefreshLatency(task string, seconds float64) {
	r.refreshLatency.WithLabelValues(task).Observe(seconds)
}

// RecordProviderFetch records a sentiment provider fetch outcome.
func (r *Recorder) RecordProviderFetch(provider, result string) {
	r.providerFetches.WithLabelValues(provider, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
