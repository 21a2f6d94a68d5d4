package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	parcelOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskwire",
			Subsystem: "parcel",
			Name:      "ops_total",
			Help:      "Parcel pack and unpack operations by payload type and outcome.",
		},
		[]string{"op", "type", "outcome"},
	)
	parcelBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskwire",
			Subsystem: "parcel",
			Name:      "bytes",
			Help:      "Encoded parcel size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		},
		[]string{"op"},
	)
	parcelErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskwire",
			Subsystem: "parcel",
			Name:      "errors_total",
			Help:      "Parcel failures by operation and error class.",
		},
		[]string{"op", "class"},
	)
	registryMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskwire",
			Subsystem: "registry",
			Name:      "misses_total",
			Help:      "Type tags received without a matching registration.",
		},
	)
	taskRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskwire",
			Subsystem: "task",
			Name:      "runs_total",
			Help:      "Jobs executed by policy and outcome.",
		},
		[]string{"policy", "outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskwire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskwire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			parcelOps,
			parcelBytes,
			parcelErrors,
			registryMisses,
			taskRuns,
			httpRequests,
			httpDuration,
		)
	})
}

// RecordParcel counts one pack or unpack. class is empty on success.
func RecordParcel(op, typeName string, size int, class string) {
	RegisterMetrics()
	if class != "" {
		parcelOps.WithLabelValues(op, typeName, "error").Inc()
		parcelErrors.WithLabelValues(op, class).Inc()
		return
	}
	parcelOps.WithLabelValues(op, typeName, "ok").Inc()
	parcelBytes.WithLabelValues(op).Observe(float64(size))
}

func RecordRegistryMiss() {
	RegisterMetrics()
	registryMisses.Inc()
}

func RecordTaskRun(policy string, err error) {
	RegisterMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	taskRuns.WithLabelValues(policy, outcome).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
