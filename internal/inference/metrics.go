package inference

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopolitics_inference_requests_total",
			Help: "Total number of requests to the inference server.",
		},
		[]string{"provider", "model", "operation", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geopolitics_inference_request_duration_seconds",
			Help:    "Histogram of inference request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		},
		[]string{"provider", "model", "operation"},
	)
	promptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geopolitics_inference_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20), // 100, 200, ..., 2000
		},
		[]string{"provider", "model"},
	)
	completionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geopolitics_inference_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"provider", "model"},
	)
)

const (
	operationHealth   = "health"
	operationComplete = "complete"

	statusSuccess = "success"
	statusError   = "error"
)

func observeRequest(provider, model, operation string, err error, seconds float64) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	requestsTotal.WithLabelValues(provider, model, operation, status).Inc()
	requestDuration.WithLabelValues(provider, model, operation).Observe(seconds)
}
