// Package metrics adapts the gateway's Prometheus instrumentation
// (internal/metrics/metrics.go) to the fragment storage pipeline: where
// the gateway counted HTTP/S3/encryption operations, this package counts
// fragments produced, replicas written and recovered (by fallback
// depth), missing-fragment outcomes, and store/retrieve durations.
package metrics

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

var defaultRegistry = prometheus.DefaultRegisterer

// Metrics holds all pipeline metrics.
type Metrics struct {
	fragmentsProduced  prometheus.Counter
	replicasWritten    *prometheus.CounterVec
	replicaWriteErrors *prometheus.CounterVec

	replicasRecovered  *prometheus.CounterVec
	fragmentsMissing   prometheus.Counter
	fragmentRetryDepth prometheus.Histogram

	storeDuration    prometheus.Histogram
	retrieveDuration prometheus.Histogram
	storeBytes       prometheus.Counter
	retrieveBytes    prometheus.Counter

	guardClaimsTotal  *prometheus.CounterVec
	hardwareAccelEnabled *prometheus.GaugeVec

	goroutines       prometheus.Gauge
	memoryAllocBytes prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered against the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return newMetricsWithRegistry(defaultRegistry)
}

// NewMetricsWithRegistry creates a Metrics instance against a custom
// registry, avoiding registration collisions across parallel tests.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetricsWithRegistry(reg)
}

func newMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fragmentsProduced: factory.NewCounter(prometheus.CounterOpts{
			Name: "fragvault_fragments_produced_total",
			Help: "Total number of fragments produced by the producer.",
		}),
		replicasWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fragvault_replicas_written_total",
			Help: "Total number of replica blobs written.",
		}, []string{"node"}),
		replicaWriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fragvault_replica_write_errors_total",
			Help: "Total number of replica write failures.",
		}, []string{"node", "error_type"}),
		replicasRecovered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fragvault_replicas_recovered_total",
			Help: "Total number of fragments recovered, labeled by the replica index that succeeded.",
		}, []string{"replica_index"}),
		fragmentsMissing: factory.NewCounter(prometheus.CounterOpts{
			Name: "fragvault_fragments_missing_total",
			Help: "Total number of fragments that exhausted all replicas during retrieval.",
		}),
		fragmentRetryDepth: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fragvault_fragment_retry_depth",
			Help:    "Number of replicas attempted before a fragment was recovered or declared missing.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		storeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fragvault_store_duration_seconds",
			Help:    "Duration of a full Store call.",
			Buckets: prometheus.DefBuckets,
		}),
		retrieveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fragvault_retrieve_duration_seconds",
			Help:    "Duration of a full Retrieve call.",
			Buckets: prometheus.DefBuckets,
		}),
		storeBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "fragvault_store_bytes_total",
			Help: "Total payload bytes accepted by Store.",
		}),
		retrieveBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "fragvault_retrieve_bytes_total",
			Help: "Total payload bytes returned by Retrieve.",
		}),
		guardClaimsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fragvault_guard_claims_total",
			Help: "Total number of write-once guard claims, labeled by outcome.",
		}, []string{"outcome"}),
		hardwareAccelEnabled: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fragvault_hardware_acceleration_enabled",
			Help: "Hardware acceleration status (1=enabled, 0=disabled).",
		}, []string{"type"}),
		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fragvault_goroutines",
			Help: "Number of goroutines.",
		}),
		memoryAllocBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fragvault_memory_alloc_bytes",
			Help: "Bytes allocated and not yet freed.",
		}),
	}
}

// RecordFragmentsProduced increments the fragments-produced counter by n.
func (m *Metrics) RecordFragmentsProduced(n int) {
	m.fragmentsProduced.Add(float64(n))
}

// RecordReplicaWrite records one successful replica write to node.
func (m *Metrics) RecordReplicaWrite(ctx context.Context, node string) {
	if ex := exemplarLabels(ctx); ex != nil {
		if adder, ok := m.replicasWritten.WithLabelValues(node).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, ex)
			return
		}
	}
	m.replicasWritten.WithLabelValues(node).Inc()
}

// RecordReplicaWriteError records one failed replica write.
func (m *Metrics) RecordReplicaWriteError(node, errorType string) {
	m.replicaWriteErrors.WithLabelValues(node, errorType).Inc()
}

// RecordFragmentRecovered records a fragment recovered on its
// replicaIndex-th attempt (0 = first replica succeeded).
func (m *Metrics) RecordFragmentRecovered(replicaIndex int) {
	m.replicasRecovered.WithLabelValues(strconv.Itoa(replicaIndex)).Inc()
	m.fragmentRetryDepth.Observe(float64(replicaIndex + 1))
}

// RecordFragmentMissing records a fragment that exhausted all replicas.
func (m *Metrics) RecordFragmentMissing(replicasAttempted int) {
	m.fragmentsMissing.Inc()
	m.fragmentRetryDepth.Observe(float64(replicasAttempted))
}

// RecordStore records one Store call's duration and payload size.
func (m *Metrics) RecordStore(duration time.Duration, bytes int) {
	m.storeDuration.Observe(duration.Seconds())
	m.storeBytes.Add(float64(bytes))
}

// RecordRetrieve records one Retrieve call's duration and payload size.
func (m *Metrics) RecordRetrieve(duration time.Duration, bytes int) {
	m.retrieveDuration.Observe(duration.Seconds())
	m.retrieveBytes.Add(float64(bytes))
}

// RecordGuardClaim records a write-once guard claim outcome: "claimed"
// or "already_claimed".
func (m *Metrics) RecordGuardClaim(outcome string) {
	m.guardClaimsTotal.WithLabelValues(outcome).Inc()
}

// SetHardwareAccelerationStatus reports whether AES hardware support is
// available for the given acceleration type label (the cmd entrypoints
// pass "aes").
func (m *Metrics) SetHardwareAccelerationStatus(accelType string, enabled bool) {
	val := 0.0
	if enabled {
		val = 1.0
	}
	m.hardwareAccelEnabled.WithLabelValues(accelType).Set(val)
}

// UpdateSystemMetrics refreshes goroutine/memory gauges.
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(memStats.Alloc))
}

// StartSystemMetricsCollector periodically refreshes system gauges until
// ctx is cancelled.
func (m *Metrics) StartSystemMetricsCollector(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.UpdateSystemMetrics()
			}
		}
	}()
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

func exemplarLabels(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		return prometheus.Labels{"trace_id": spanContext.TraceID().String()}
	}
	return nil
}
