// Package observability owns the Prometheus collectors recorded on the
// request path.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	sosOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_operations_total",
			Help: "SOS operations by name and outcome (ok or exception code).",
		},
		[]string{"operation", "version", "outcome"},
	)

	storageQuerySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_query_duration_seconds",
			Help:    "Latency of storage queries in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"query", "result"},
	)

	storageAcquireErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storage_acquire_errors_total",
			Help: "Failed storage session acquisitions.",
		},
	)

	observationCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observation_cache_results_total",
			Help: "Observation cache lookups by outcome.",
		},
		[]string{"driver", "outcome"},
	)

	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis cache operations by result.",
		},
		[]string{"op", "result"},
	)

	redisOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observation_events_total",
			Help: "Observation events by outcome (queued, dropped, failed).",
		},
		[]string{"outcome"},
	)

	invalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Ingest notifications applied to the observation cache.",
		},
		[]string{"op", "result"},
	)

	invalidatedKeys = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_invalidated_keys_total",
			Help: "Observation cache entries removed by invalidation.",
		},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Invalidation consumer errors by kind.",
		},
		[]string{"kind"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sos_gateway_build_info",
			Help: "Version of the running gateway (value is always 1).",
		},
		[]string{"version"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, sosOperations,
		storageQuerySeconds, storageAcquireErrors, observationCache,
		cacheOps, redisOpSeconds, eventsTotal, invalidations,
		invalidatedKeys, kafkaConsumerErrors, buildInfo,
	}
}

func init() {
	prometheus.MustRegister(collectors()...)
}

// Init additionally registers the collectors with reg, typically the
// metrics provider's registry. Disabled or nil leaves only the default
// registry in place.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveOperation(operation, version, outcome string) {
	if operation == "" {
		operation = "none"
	}
	sosOperations.WithLabelValues(operation, version, outcome).Inc()
}

func ObserveStorageQuery(query string, err error, durationSeconds float64) {
	storageQuerySeconds.WithLabelValues(query, result(err)).Observe(durationSeconds)
}

func IncStorageAcquireError() {
	storageAcquireErrors.Inc()
}

func ObserveObservationCache(driver, outcome string) {
	observationCache.WithLabelValues(driver, outcome).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	cacheOps.WithLabelValues(op, result(err)).Inc()
	redisOpSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncEvent(outcome string) {
	eventsTotal.WithLabelValues(outcome).Inc()
}

func ObserveInvalidation(op string, removed int, err error) {
	invalidations.WithLabelValues(op, result(err)).Inc()
	if removed > 0 {
		invalidatedKeys.Add(float64(removed))
	}
}

func IncKafkaConsumerError(kind string) {
	kafkaConsumerErrors.WithLabelValues(kind).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
