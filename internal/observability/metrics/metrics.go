// Package metrics exposes Prometheus collectors for downlink traffic.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "downlink_"

	// ResultSuccess labels a publish the broker acknowledged.
	ResultSuccess = "success"
	// ResultConnectError labels a session that could not be opened.
	ResultConnectError = "connect_error"
	// ResultPublishError labels a publish the broker did not acknowledge.
	ResultPublishError = "publish_error"
	// ResultError labels any other failure.
	ResultError = "error"
)

var (
	registerOnce sync.Once

	publishTotal      *prometheus.CounterVec
	publishLatency    *prometheus.HistogramVec
	validationErrors  *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
)

// Init registers the collectors with the default registry. Calling it more
// than once is harmless; observations made before Init are dropped.
func Init() {
	InitWith(prometheus.DefaultRegisterer)
}

// InitWith registers the collectors with reg. Only the first call to Init or
// InitWith has any effect.
func InitWith(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		publishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "publish_total",
				Help: "Total downlink publish attempts by device model and result",
			},
			[]string{"model", "result"},
		)
		publishLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "publish_duration_seconds",
				Help:    "Downlink publish latency (connect, publish, close) in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		)
		validationErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_errors_total",
				Help: "Total rejected device intents by device model and field",
			},
			[]string{"model", "field"},
		)
		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		)
		reg.MustRegister(
			publishTotal,
			publishLatency,
			validationErrors,
			httpRequestsTotal,
		)
	})
}

// ObservePublish records a publish attempt's result and duration.
func ObservePublish(model, result string, duration time.Duration) {
	if model == "" {
		model = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if publishTotal != nil {
		publishTotal.WithLabelValues(model, result).Inc()
	}
	if publishLatency != nil {
		publishLatency.WithLabelValues(model).Observe(duration.Seconds())
	}
}

// IncValidationError counts a rejected intent.
func IncValidationError(model, field string) {
	if model == "" {
		model = "unknown"
	}
	if field == "" {
		field = "unknown"
	}
	if validationErrors != nil {
		validationErrors.WithLabelValues(model, field).Inc()
	}
}

// IncHTTPRequest counts a served HTTP request.
func IncHTTPRequest(route, code string) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(route, code).Inc()
	}
}
