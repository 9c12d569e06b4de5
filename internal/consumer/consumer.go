// Package consumer reconstructs a stored payload: for every fragment-id, walk its
// replicas in order and yield the first one that reads, decodes, and
// decompresses cleanly; reassemble in ascending fragment-id order and
// report any fragment that exhausted all replicas. Grounded on the
// gateway's download path (internal/crypto decrypt_reader.go),
// generalized from a single-stream read to fragment/replica fallback.
package consumer

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/nilsroemer/cryptofrag/internal/compress"
	"github.com/nilsroemer/cryptofrag/internal/debug"
	"github.com/nilsroemer/cryptofrag/internal/errs"
	"github.com/nilsroemer/cryptofrag/internal/fragment"
	"github.com/nilsroemer/cryptofrag/internal/metrics"
	"github.com/nilsroemer/cryptofrag/internal/placement"
	"github.com/nilsroemer/cryptofrag/internal/scheduler"
	"github.com/nilsroemer/cryptofrag/internal/sizer"
	"github.com/nilsroemer/cryptofrag/internal/storageio"
)

// Consumer retrieves a payload previously placed by producer.Producer.
type Consumer struct {
	Stores            []storageio.NodeStore
	ReplicationFactor int
	IOConcurrency     int

	// Metrics, if non-nil, records replica-fallback depth per fragment
	// and fragments that exhausted all replicas.
	Metrics *metrics.Metrics

	// Logger receives the consumer's Info/Debug/Warn/Error events.
	// Defaults to a standalone logrus.Logger if left nil.
	Logger *logrus.Logger
}

// New builds a Consumer over the given node stores.
func New(stores []storageio.NodeStore, replicationFactor int) *Consumer {
	return &Consumer{Stores: stores, ReplicationFactor: replicationFactor}
}

func (c *Consumer) logger() *logrus.Entry {
	l := c.Logger
	if l == nil {
		l = logrus.New()
	}
	return l.WithField("component", "consumer")
}

// Result is the outcome of a Retrieve call: the reassembled payload
// (present fragments only, in ascending order) and, if any fragment-id
// had no surviving replica, the fragment-ids that are missing.
type Result struct {
	Payload []byte
	Missing []int
}

type fragmentOutcome struct {
	fragmentID int
	plaintext  []byte
	err        error
}

// Retrieve fetches fragmentCount fragments, each with up to
// ReplicationFactor replicas, reassembling in ascending fragment-id
// order. It never returns an error for missing or corrupt replicas —
// those are recovered locally, fragment by fragment — only for
// genuinely unexpected conditions (e.g. a misconfigured Consumer).
func (c *Consumer) Retrieve(ctx context.Context, payloadChecksum [32]byte, fragmentCount int) (Result, error) {
	if len(c.Stores) == 0 {
		return Result{}, errs.ErrInvalidInput
	}
	if fragmentCount < 1 {
		fragmentCount = 1
	}

	ids := make([]int, fragmentCount)
	for i := range ids {
		ids[i] = i
	}

	gate := scheduler.NewIOGate(ioConcurrency(c.IOConcurrency, fragmentCount))
	batchSize := sizer.BatchSize(fragmentCount)

	results := scheduler.RunBatches(ctx, gate, ids, batchSize, func(ctx context.Context, fragmentID int) (fragmentOutcome, error) {
		plaintext, attempted, err := c.recoverFragment(ctx, payloadChecksum, fragmentID)
		if c.Metrics != nil {
			if err != nil {
				c.Metrics.RecordFragmentMissing(attempted)
			} else {
				c.Metrics.RecordFragmentRecovered(attempted - 1)
			}
		}
		return fragmentOutcome{fragmentID: fragmentID, plaintext: plaintext, err: err}, nil
	})

	outcomes := make([]fragmentOutcome, len(results))
	for i, r := range results {
		if r.Err != nil {
			// Only a cancelled context produces a scheduler-level error
			// here; treat the fragment as missing rather than aborting.
			outcomes[i] = fragmentOutcome{fragmentID: ids[i], err: r.Err}
			continue
		}
		outcomes[i] = r.Value
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].fragmentID < outcomes[j].fragmentID })

	var payload []byte
	var missing []int
	for _, o := range outcomes {
		if o.err != nil {
			missing = append(missing, o.fragmentID)
			continue
		}
		payload = append(payload, o.plaintext...)
	}

	c.logger().WithFields(logrus.Fields{
		"retrieved": fragmentCount - len(missing),
		"requested": fragmentCount,
	}).Info("retrieved fragments")

	return Result{Payload: payload, Missing: missing}, nil
}

// recoverFragment tries each replica of a fragment in order and returns
// the first one that decodes and decrypts cleanly, along with the
// number of replicas attempted (including the successful one, if any) —
// used only for metrics, never for correctness.
func (c *Consumer) recoverFragment(ctx context.Context, payloadChecksum [32]byte, fragmentID int) ([]byte, int, error) {
	var lastErr error = errs.ErrNotFound
	log := c.logger()

	for r := 0; r < c.ReplicationFactor; r++ {
		node := placement.NodeIndex(fragmentID, r, c.ReplicationFactor, len(c.Stores))
		name := placement.FileName(fragmentID, r)
		fields := logrus.Fields{"fragment_id": fragmentID, "replica_id": r}

		blob, err := c.Stores[node].Read(ctx, name)
		if err != nil {
			lastErr = err
			if errors.Is(err, errs.ErrNotFound) {
				log.WithFields(fields).Warn("fragment replica missing")
			} else {
				log.WithFields(fields).WithError(err).Error("fragment replica read failed")
			}
			continue
		}

		compressed, err := fragment.Decode(payloadChecksum, fragmentID, r, blob)
		if err != nil {
			lastErr = err
			switch {
			case errors.Is(err, errs.ErrChecksumMismatch):
				log.WithFields(fields).Error("fragment replica checksum mismatch")
			case errors.Is(err, errs.ErrAuthFailure):
				log.WithFields(fields).WithError(err).Error("fragment replica decryption failed")
			default:
				log.WithFields(fields).WithError(err).Error("fragment replica data incomplete or corrupted")
			}
			continue
		}

		plaintext, err := compress.Decompress(compressed)
		if err != nil {
			lastErr = err
			log.WithFields(fields).WithError(err).Error("fragment replica data incomplete or corrupted")
			continue
		}

		if debug.Enabled() {
			log.WithFields(fields).Debug("fragment replica decrypted and decompressed")
		}
		return plaintext, r + 1, nil
	}

	log.WithField("fragment_id", fragmentID).Error("all replicas failed for fragment")
	return nil, c.ReplicationFactor, lastErr
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
