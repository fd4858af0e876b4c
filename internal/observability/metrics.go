package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts accepted state changes by entity and resulting status.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_lifecycle_transitions_total",
		Help: "Accepted lifecycle transitions by entity and target status",
	}, []string{"entity", "to"})

	// RejectedOperationsTotal counts operations refused with a domain error code.
	RejectedOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_lifecycle_rejections_total",
		Help: "Lifecycle operations rejected, by operation and error code",
	}, []string{"operation", "code"})

	// EffectsDispatched counts side-effect intents handed to collaborators.
	EffectsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_effects_dispatched_total",
		Help: "Side-effect intents dispatched, by kind and outcome",
	}, []string{"kind", "outcome"})

	// PaymentsRecorded counts gateway results applied to payments.
	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_payments_recorded_total",
		Help: "Payment results recorded, by type and status",
	}, []string{"type", "status"})

	// LeasesExpired counts leases moved to EXPIRED by the sweep.
	LeasesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_leases_expired_total",
		Help: "Leases expired by the scheduled sweep",
	})

	// GatewayLatency records outbound collaborator request latency.
	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rental_gateway_request_duration_seconds",
		Help:    "Outbound collaborator request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation", "outcome"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rental_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of open event-stream connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rental_websocket_connections",
		Help: "Number of open lifecycle event WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveGateway records one outbound call.
func ObserveGateway(service, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	GatewayLatency.WithLabelValues(service, operation, outcome).Observe(time.Since(start).Seconds())
}
