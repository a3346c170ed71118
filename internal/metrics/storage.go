package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storageOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_storage_operations_total",
		Help: "Storage backend operations by backend, operation and result.",
	}, []string{"backend", "op", "result"})

	storageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "translator_storage_operation_duration_seconds",
		Help:    "Latency of storage backend operations.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"backend", "op"})

	storageBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_storage_bytes_total",
		Help: "Bytes read from or written to storage backends.",
	}, []string{"backend", "op"})

	degradedReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translator_store_degraded_reads_total",
		Help: "User records replaced with an empty record after a read or decode failure.",
	})

	translations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_translations_total",
		Help: "Translation requests by result.",
	}, []string{"result"})
)

// ObserveStorage records the outcome of one backend operation.
func ObserveStorage(backend, op string, start time.Time, n int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storageOps.WithLabelValues(backend, op, result).Inc()
	storageLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if n > 0 {
		storageBytes.WithLabelValues(backend, op).Add(float64(n))
	}
}

// DegradedRead counts a record that was silently replaced by an empty one.
func DegradedRead() {
	degradedReads.Inc()
}

// Translation counts a translation attempt.
func Translation(err error) {
	if err != nil {
		translations.WithLabelValues("error").Inc()
		return
	}
	translations.WithLabelValues("ok").Inc()
}
