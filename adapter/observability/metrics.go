// Package observability provides Prometheus metrics instrumentation for the adapter.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// INVOCATION METRICS
// =============================================================================

var (
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lambda_adapter_invocations_total",
			Help: "Total number of envelope invocations",
		},
		[]string{"variant", "status"}, // status: HTTP status code of the result
	)

	invocationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lambda_adapter_invocation_duration_seconds",
			Help:    "Invocation duration in seconds, from payload decode to result",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"variant"},
	)

	invocationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lambda_adapter_invocation_failures_total",
			Help: "Invocations converted into a generic error result",
		},
		[]string{"variant", "stage"}, // stage: decode, request, dispatch, result, stream
	)
)

// =============================================================================
// TRIGGER METRICS
// =============================================================================

var (
	triggerHandlerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lambda_adapter_trigger_handler_calls_total",
			Help: "Total trigger handler invocations",
		},
		[]string{"event_source", "handler_id", "status"},
	)

	triggerHandlerDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lambda_adapter_trigger_handler_duration_seconds",
			Help:    "Trigger handler duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"event_source", "handler_id"},
	)
)

// =============================================================================
// STREAMING METRICS
// =============================================================================

var streamBytesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lambda_adapter_stream_bytes_total",
		Help: "Body bytes forwarded to streaming responses",
	},
	[]string{"variant"},
)

// =============================================================================
// GRPC METRICS
// =============================================================================

var (
	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lambda_adapter_grpc_requests_total",
			Help: "Total gRPC requests",
		},
		[]string{"method", "status"}, // status: OK, InvalidArgument, Internal, etc.
	)

	grpcRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lambda_adapter_grpc_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordInvocation records a completed invocation.
func RecordInvocation(variant string, statusCode int, durationMS int) {
	invocationsTotal.WithLabelValues(variant, strconv.Itoa(statusCode)).Inc()
	invocationDurationSeconds.WithLabelValues(variant).Observe(float64(durationMS) / 1000.0)
}

// RecordInvocationFailure records an invocation that failed at stage.
func RecordInvocationFailure(variant string, stage string) {
	invocationFailuresTotal.WithLabelValues(variant, stage).Inc()
}

// RecordTriggerHandler records one trigger handler call made during fan-out.
func RecordTriggerHandler(eventSource string, handlerID string, statusCode int, durationMS int) {
	triggerHandlerCallsTotal.WithLabelValues(eventSource, handlerID, strconv.Itoa(statusCode)).Inc()
	triggerHandlerDurationSeconds.WithLabelValues(eventSource, handlerID).Observe(float64(durationMS) / 1000.0)
}

// RecordStreamBytes adds n forwarded body bytes.
func RecordStreamBytes(variant string, n int) {
	streamBytesTotal.WithLabelValues(variant).Add(float64(n))
}

// RecordGRPCRequest records gRPC request metrics.
// This should be called from gRPC interceptors.
func RecordGRPCRequest(method string, status string, durationMS int) {
	grpcRequestsTotal.WithLabelValues(method, status).Inc()
	grpcRequestDurationSeconds.WithLabelValues(method).Observe(float64(durationMS) / 1000.0)
}
