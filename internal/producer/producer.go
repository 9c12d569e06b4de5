// Package producer splits a payload into fragments, compresses each
// fragment once, encrypts it once per replica across the CPU pool, and
// places the resulting blobs across nodes through the async I/O gate.
// Grounded on the gateway's upload path (internal/crypto chunked.go)
// generalized from "one stream, many chunks" to "one payload, many
// fragments times replicas".
package producer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nilsroemer/cryptofrag/internal/compress"
	"github.com/nilsroemer/cryptofrag/internal/debug"
	"github.com/nilsroemer/cryptofrag/internal/fragment"
	"github.com/nilsroemer/cryptofrag/internal/metrics"
	"github.com/nilsroemer/cryptofrag/internal/placement"
	"github.com/nilsroemer/cryptofrag/internal/scheduler"
	"github.com/nilsroemer/cryptofrag/internal/sizer"
	"github.com/nilsroemer/cryptofrag/internal/storageio"
)

// FastPathThreshold is the payload size below which a single-fragment
// store is performed inline instead of round-tripping through the CPU
// pool and I/O gate.
const FastPathThreshold = 100 * 1024

// Producer orchestrates split → compress → encrypt → place for one
// payload.
type Producer struct {
	Nodes             []string
	Stores            []storageio.NodeStore
	ReplicationFactor int
	CPUWorkers        int
	IOConcurrency     int

	// DisableFastPath forces the general path even for a single
	// fragment; used by tests that want to exercise the scheduler for
	// small payloads.
	DisableFastPath bool

	// Metrics, if non-nil, records fragments produced and per-node
	// replica write outcomes.
	Metrics *metrics.Metrics

	// Logger receives the producer's Info/Debug events. Defaults to a
	// standalone logrus.Logger if left nil.
	Logger *logrus.Logger
}

// New builds a Producer. stores must have the same length as nodes and
// is indexed identically; the caller is responsible for constructing one
// storageio.NodeStore per node (local filesystem, S3, or otherwise).
func New(nodes []string, stores []storageio.NodeStore, replicationFactor int) *Producer {
	return &Producer{
		Nodes:             nodes,
		Stores:            stores,
		ReplicationFactor: replicationFactor,
	}
}

func (p *Producer) logger() *logrus.Entry {
	l := p.Logger
	if l == nil {
		l = logrus.New()
	}
	return l.WithField("component", "producer")
}

type writeItem struct {
	fragmentID int
	replicaID  int
	blob       []byte
}

// Store splits payload into fragments of size fragmentSize, encrypts and
// places every replica, and returns once all writes have resolved or the
// first failure aborts the operation. Partially written blobs from an
// aborted store are left in place.
func (p *Producer) Store(ctx context.Context, payload []byte, payloadChecksum [32]byte, fragmentSize int) error {
	if len(p.Stores) == 0 {
		return fmt.Errorf("producer: no node stores configured")
	}
	if p.ReplicationFactor < 1 {
		return fmt.Errorf("producer: replication factor must be >= 1")
	}

	fragments := splitPayload(payload, fragmentSize)
	f := len(fragments)

	log := p.logger()
	log.WithFields(logrus.Fields{"fragments": f, "bytes": len(payload)}).Info("fragmentation complete")

	if p.Metrics != nil {
		p.Metrics.RecordFragmentsProduced(f)
	}

	if f == 1 && !p.DisableFastPath && len(payload) <= FastPathThreshold {
		return p.storeInline(ctx, fragments[0], payloadChecksum)
	}

	return p.storeScheduled(ctx, fragments, payloadChecksum)
}

func splitPayload(payload []byte, fragmentSize int) [][]byte {
	if fragmentSize < 1 {
		fragmentSize = len(payload)
	}
	if len(payload) == 0 {
		return [][]byte{{}}
	}

	fragments := make([][]byte, 0, sizer.FragmentCount(int64(len(payload)), fragmentSize))
	for start := 0; start < len(payload); start += fragmentSize {
		end := min(start+fragmentSize, len(payload))
		fragments = append(fragments, payload[start:end])
	}
	return fragments
}

func (p *Producer) storeInline(ctx context.Context, f0 []byte, payloadChecksum [32]byte) error {
	log := p.logger()

	compressed, err := compress.Compress(f0)
	if err != nil {
		return fmt.Errorf("producer: compress fragment 0: %w", err)
	}

	for r := 0; r < p.ReplicationFactor; r++ {
		blob, err := fragment.Encode(payloadChecksum, 0, r, compressed)
		if err != nil {
			return fmt.Errorf("producer: encode fragment 0 replica %d: %w", r, err)
		}
		node := placement.NodeIndex(0, r, p.ReplicationFactor, len(p.Stores))
		store := p.Stores[node]
		if err := store.EnsureDir(ctx); err != nil {
			return fmt.Errorf("producer: ensure dir on node %d: %w", node, err)
		}
		name := placement.FileName(0, r)
		if err := store.Write(ctx, name, blob); err != nil {
			if p.Metrics != nil {
				p.Metrics.RecordReplicaWriteError(p.Nodes[node], "io")
			}
			return fmt.Errorf("producer: write %s to node %d: %w", name, node, err)
		}
		if debug.Enabled() {
			log.WithFields(logrus.Fields{"fragment_id": 0, "replica_id": r, "node": store.String()}).Debug("fragment replica stored")
		}
		if p.Metrics != nil {
			p.Metrics.RecordReplicaWrite(ctx, p.Nodes[node])
		}
	}
	log.Info("all fragments stored")
	return nil
}

type cpuItem struct {
	fragmentID int
	replicaID  int
	plaintext  []byte
}

func (p *Producer) storeScheduled(ctx context.Context, fragments [][]byte, payloadChecksum [32]byte) error {
	log := p.logger()
	f := len(fragments)
	r := p.ReplicationFactor

	compressed := make([][]byte, f)
	for i, frag := range fragments {
		c, err := compress.Compress(frag)
		if err != nil {
			return fmt.Errorf("producer: compress fragment %d: %w", i, err)
		}
		compressed[i] = c
	}

	items := make([]cpuItem, 0, f*r)
	for i := 0; i < f; i++ {
		for rep := 0; rep < r; rep++ {
			items = append(items, cpuItem{fragmentID: i, replicaID: rep, plaintext: compressed[i]})
		}
	}

	pool := scheduler.NewCPUPool(p.CPUWorkers)
	encoded := scheduler.Run(ctx, pool, items, func(_ context.Context, it cpuItem) (writeItem, error) {
		blob, err := fragment.Encode(payloadChecksum, it.fragmentID, it.replicaID, it.plaintext)
		if err != nil {
			return writeItem{}, err
		}
		return writeItem{fragmentID: it.fragmentID, replicaID: it.replicaID, blob: blob}, nil
	})

	writes := make([]writeItem, 0, f*r)
	for res := range encoded {
		if res.Err != nil {
			src := items[res.Index]
			return fmt.Errorf("producer: encode fragment %d replica %d: %w", src.fragmentID, src.replicaID, res.Err)
		}
		writes = append(writes, res.Value)
	}
	log.Info("encryption complete")

	for node, store := range p.Stores {
		if err := store.EnsureDir(ctx); err != nil {
			return fmt.Errorf("producer: ensure dir on node %d: %w", node, err)
		}
	}

	gate := scheduler.NewIOGate(ioConcurrency(p.IOConcurrency, f*r))
	batchSize := sizer.BatchSize(f)

	results := scheduler.RunBatches(ctx, gate, writes, batchSize, func(ctx context.Context, w writeItem) (struct{}, error) {
		node := placement.NodeIndex(w.fragmentID, w.replicaID, r, len(p.Stores))
		store := p.Stores[node]
		name := placement.FileName(w.fragmentID, w.replicaID)
		err := store.Write(ctx, name, w.blob)
		if err == nil && debug.Enabled() {
			log.WithFields(logrus.Fields{"fragment_id": w.fragmentID, "replica_id": w.replicaID, "node": store.String()}).Debug("fragment replica stored")
		}
		if p.Metrics != nil {
			if err != nil {
				p.Metrics.RecordReplicaWriteError(p.Nodes[node], "io")
			} else {
				p.Metrics.RecordReplicaWrite(ctx, p.Nodes[node])
			}
		}
		return struct{}{}, err
	})

	for _, res := range results {
		if res.Err != nil {
			return fmt.Errorf("producer: write fragment %d replica %d: %w", writes[res.Index].fragmentID, writes[res.Index].replicaID, res.Err)
		}
	}

	log.Info("all fragments stored")
	return nil
}

func ioConcurrency(configured, total int) int {
	if configured > 0 {
		return configured
	}
	if total < 1 {
		return 1
	}
	return total
}
