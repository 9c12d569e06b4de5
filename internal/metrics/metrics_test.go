package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)
	require.NotNil(t, m)
	require.NotNil(t, m.fragmentsProduced)
	require.NotNil(t, m.replicasWritten)
	require.NotNil(t, m.replicasRecovered)
}

func TestRecordFragmentsProduced(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.RecordFragmentsProduced(4)
	require.Equal(t, 4.0, testutil.ToFloat64(m.fragmentsProduced))
}

func TestRecordReplicaWrite(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.RecordReplicaWrite(nil, "node-0")
	m.RecordReplicaWrite(nil, "node-0")
	require.Equal(t, 2.0, testutil.ToFloat64(m.replicasWritten.WithLabelValues("node-0")))
}

func TestRecordReplicaWriteError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.RecordReplicaWriteError("node-1", "io_failure")
	require.Equal(t, 1.0, testutil.ToFloat64(m.replicaWriteErrors.WithLabelValues("node-1", "io_failure")))
}

func TestRecordFragmentRecovered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.RecordFragmentRecovered(0)
	m.RecordFragmentRecovered(1)
	require.Equal(t, 1.0, testutil.ToFloat64(m.replicasRecovered.WithLabelValues("0")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.replicasRecovered.WithLabelValues("1")))
}

func TestRecordFragmentMissing(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.RecordFragmentMissing(3)
	require.Equal(t, 1.0, testutil.ToFloat64(m.fragmentsMissing))
}

func TestRecordStoreAndRetrieve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.RecordStore(10*time.Millisecond, 2048)
	m.RecordRetrieve(5*time.Millisecond, 2048)

	require.Equal(t, 2048.0, testutil.ToFloat64(m.storeBytes))
	require.Equal(t, 2048.0, testutil.ToFloat64(m.retrieveBytes))
}

func TestRecordGuardClaim(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.RecordGuardClaim("claimed")
	m.RecordGuardClaim("already_claimed")
	require.Equal(t, 1.0, testutil.ToFloat64(m.guardClaimsTotal.WithLabelValues("claimed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.guardClaimsTotal.WithLabelValues("already_claimed")))
}

func TestSetHardwareAccelerationStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.SetHardwareAccelerationStatus("aes-ni", true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.hardwareAccelEnabled.WithLabelValues("aes-ni")))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)
	m.RecordFragmentsProduced(1)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "fragvault_fragments_produced_total")
	_ = m.Handler()
}
