package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "couple_summary",
			Subsystem: "http_client",
			Name:      "retries_total",
			Help:      "Outbound HTTP attempts that were retried, by reason.",
		},
		[]string{"reason"},
	)

	providerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "couple_summary",
			Subsystem: "provider",
			Name:      "attempts_total",
			Help:      "Text-generation calls per model and result.",
		},
		[]string{"model", "result"},
	)

	generationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "couple_summary",
			Subsystem: "summary",
			Name:      "requests_total",
			Help:      "Summary requests by final outcome.",
		},
		[]string{"outcome"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "couple_summary",
			Subsystem: "summary",
			Name:      "generation_duration_seconds",
			Help:      "Wall time spent generating a summary, claim to terminal write.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpRetries,
		providerAttempts,
		generationOutcomes,
		generationDuration,
	)
}

// RecordHTTPRetry counts one retried outbound attempt.
func RecordHTTPRetry(reason string) {
	httpRetries.WithLabelValues(reason).Inc()
}

// RecordProviderAttempt counts one call to a generation model.
func RecordProviderAttempt(model, result string) {
	providerAttempts.WithLabelValues(model, result).Inc()
}

// RecordOutcome counts the final outcome of a summary request.
func RecordOutcome(outcome string) {
	generationOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records how long an owned generation took.
func ObserveGeneration(outcome string, d time.Duration) {
	generationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
