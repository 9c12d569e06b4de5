// Package api exposes the fragment store/retrieve pipeline over HTTP: a
// thin façade spec.md keeps deliberately out of core scope. Grounded on
// the gateway's internal/api/handlers.go (mux routing, responseWriter-free
// style, structured error logging), generalized from S3 object verbs to
// the fragment store's store/retrieve pair.
package api

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/nilsroemer/cryptofrag"
	"github.com/nilsroemer/cryptofrag/internal/audit"
	"github.com/nilsroemer/cryptofrag/internal/guard"
	"github.com/nilsroemer/cryptofrag/internal/metrics"
)

// NodeSource resolves the fixed node list and default replication/fragment
// sizing a Handler binds every request against, the same way cfg.Nodes
// works for cmd/fragvaultctl — there is no per-request node selection.
type NodeSource struct {
	Nodes             []string
	ReplicationFactor int
	FragmentSize      int
	Concurrency       int
}

// Handler serves the fragment store's HTTP API. guard is shared across
// every request so that two POST /objects calls for the same payload —
// unlike cmd/fragvaultctl's one-shot-per-process default — are still
// write-once, since each request otherwise builds its own Pipeline.
type Handler struct {
	nodes   NodeSource
	logger  *logrus.Logger
	metrics *metrics.Metrics
	guard   guard.Guard
	audit   audit.Logger
}

// NewHandler builds a Handler bound to a fixed node list. g may be nil, in
// which case an in-process MemoryGuard is created. a may be nil, in which
// case audit.NewLogger(0, nil) is used, which prints each store/retrieve
// outcome as JSON to stdout.
func NewHandler(nodes NodeSource, logger *logrus.Logger, m *metrics.Metrics, g guard.Guard, a audit.Logger) *Handler {
	if g == nil {
		g = guard.NewMemoryGuard()
	}
	if a == nil {
		a = audit.NewLogger(0, nil)
	}
	return &Handler{nodes: nodes, logger: logger, metrics: m, guard: g, audit: a}
}

// RegisterRoutes wires every endpoint onto r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", metrics.HealthHandler()).Methods(http.MethodGet)
	r.HandleFunc("/readyz", metrics.ReadinessHandler(nil)).Methods(http.MethodGet)
	r.HandleFunc("/livez", metrics.LivenessHandler()).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/objects", h.handleStore).Methods(http.MethodPost)
	r.HandleFunc("/objects/{checksum}", h.handleRetrieve).Methods(http.MethodGet)
}

// storeResponse is returned from a successful POST /objects.
type storeResponse struct {
	Checksum      string `json:"checksum"`
	FragmentCount int    `json:"fragment_count"`
	Replication   int    `json:"replication_factor"`
	Bytes         int    `json:"bytes"`
}

// handleStore reads the request body as a payload, stores it across the
// bound node list, and reports the checksum a caller needs to retrieve it.
func (h *Handler) handleStore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WithError(err).Error("read request body")
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(payload) == 0 {
		http.Error(w, "empty payload", http.StatusBadRequest)
		return
	}

	checksum := cryptofrag.Checksum(payload)
	fragmentSize := h.nodes.FragmentSize
	if fragmentSize == 0 {
		fragmentSize = cryptofrag.OptimalFragmentSize(int64(len(payload)))
	}
	replication := h.nodes.ReplicationFactor
	if replication == 0 {
		replication = cryptofrag.DefaultReplicationFactor(int64(len(payload)))
	}

	opts := []cryptofrag.Option{cryptofrag.WithGuard(h.guard)}
	if h.metrics != nil {
		opts = append(opts, cryptofrag.WithMetrics(h.metrics))
	}
	p, err := cryptofrag.New(h.nodes.Nodes, checksum, fragmentSize, replication, opts...)
	if err != nil {
		h.logger.WithError(err).Error("build pipeline")
		http.Error(w, "failed to store object", http.StatusInternalServerError)
		return
	}

	err = p.Store(r.Context(), payload, h.nodes.Concurrency)
	fragmentCount := cryptofrag.FragmentCount(int64(len(payload)), fragmentSize)
	h.audit.LogStore(hex.EncodeToString(checksum[:]), fragmentCount, replication, err == nil, err, time.Since(start))
	if err != nil {
		h.logger.WithError(err).WithField("checksum", hex.EncodeToString(checksum[:])).Error("store payload")
		http.Error(w, "failed to store object", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(storeResponse{
		Checksum:      hex.EncodeToString(checksum[:]),
		FragmentCount: fragmentCount,
		Replication:   replication,
		Bytes:         len(payload),
	})

	h.logger.WithFields(logrus.Fields{
		"checksum":       hex.EncodeToString(checksum[:]),
		"fragment_count": fragmentCount,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("stored object")
}

// handleRetrieve reconstructs a previously stored payload by checksum. The
// caller must supply the fragment count the object was split into via
// ?fragments=N, since the HTTP façade keeps no manifest of prior stores.
func (h *Handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vars := mux.Vars(r)

	checksumBytes, err := hex.DecodeString(vars["checksum"])
	if err != nil || len(checksumBytes) != 32 {
		http.Error(w, "checksum must be 32 bytes hex-encoded", http.StatusBadRequest)
		return
	}
	var checksum [32]byte
	copy(checksum[:], checksumBytes)

	fragmentCount := 1
	if raw := r.URL.Query().Get("fragments"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "fragments must be a positive integer", http.StatusBadRequest)
			return
		}
		fragmentCount = n
	}
	replication := h.nodes.ReplicationFactor
	if replication == 0 {
		replication = 2
	}

	opts := []cryptofrag.Option{}
	if h.metrics != nil {
		opts = append(opts, cryptofrag.WithMetrics(h.metrics))
	}
	p, err := cryptofrag.New(h.nodes.Nodes, checksum, 1, replication, opts...)
	if err != nil {
		h.logger.WithError(err).Error("build pipeline")
		http.Error(w, "failed to retrieve object", http.StatusInternalServerError)
		return
	}

	result, err := p.Retrieve(r.Context(), fragmentCount, h.nodes.Concurrency)
	h.audit.LogRetrieve(vars["checksum"], fragmentCount, result.Missing, err == nil, err, time.Since(start))
	if err != nil {
		h.logger.WithError(err).WithField("checksum", vars["checksum"]).Error("retrieve payload")
		http.Error(w, "failed to retrieve object", http.StatusInternalServerError)
		return
	}

	if len(result.Missing) > 0 {
		w.Header().Set("X-Missing-Fragments", joinInts(result.Missing))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	n, _ := w.Write(result.Payload)

	h.logger.WithFields(logrus.Fields{
		"checksum":          vars["checksum"],
		"bytes":             n,
		"missing_fragments": result.Missing,
		"duration_ms":       time.Since(start).Milliseconds(),
	}).Info("retrieved object")
}

func joinInts(ints []int) string {
	out := make([]byte, 0, len(ints)*2)
	for i, n := range ints {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendInt(out, int64(n), 10)
	}
	return string(out)
}
