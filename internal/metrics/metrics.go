package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for payment initiation and callback handling
var (
	PaymentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_requests_total",
			Help: "Payment requests by outcome (ok, validation, declined, system)",
		},
		[]string{"outcome"},
	)

	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpesa_gateway_requests_total",
			Help: "Calls to the M-Pesa gateway by operation and result",
		},
		[]string{"operation", "result"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mpesa_gateway_request_duration_seconds",
			Help:    "Duration of M-Pesa gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpesa_callbacks_total",
			Help: "Inbound STK callbacks by handling status",
		},
		[]string{"status"},
	)

	CallbackPersistFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mpesa_callback_persist_failures_total",
			Help: "Callbacks acknowledged although the record could not be stored",
		},
	)

	AttemptsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_attempts_expired_total",
			Help: "Pending payment attempts marked expired by the scheduler",
		},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PaymentRequestsTotal,
			GatewayRequestsTotal,
			GatewayRequestDuration,
			CallbacksTotal,
			CallbackPersistFailuresTotal,
			AttemptsExpiredTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}

// ObserveGateway records one gateway call.
func ObserveGateway(operation, result string, started time.Time) {
	GatewayRequestsTotal.WithLabelValues(operation, result).Inc()
	GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
