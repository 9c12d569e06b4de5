// Package cryptofrag implements a fault-tolerant, content-addressed
// fragment storage pipeline: a payload is split into fragments,
// compressed, authenticated-encrypted per replica with a key derived
// deterministically from the payload checksum, and replicated across a
// fixed set of storage nodes. Retrieval tolerates a bounded fraction of
// lost or corrupted replicas per fragment.
//
// This package is the thin external façade sequencing the lower-level
// components in internal/producer, internal/consumer, internal/sizer,
// and internal/storageio. The pipeline itself consumes no environment
// variables or configuration files — nodes, fragment size, and
// replication factor are supplied entirely by the caller.
package cryptofrag

import (
	"context"
	"fmt"
	"time"

	"github.com/nilsroemer/cryptofrag/internal/checksum"
	"github.com/nilsroemer/cryptofrag/internal/consumer"
	"github.com/nilsroemer/cryptofrag/internal/errs"
	"github.com/nilsroemer/cryptofrag/internal/guard"
	"github.com/nilsroemer/cryptofrag/internal/metrics"
	"github.com/nilsroemer/cryptofrag/internal/producer"
	"github.com/nilsroemer/cryptofrag/internal/sizer"
	"github.com/nilsroemer/cryptofrag/internal/storageio"
	"github.com/nilsroemer/cryptofrag/internal/telemetry"
)

// Pipeline binds a fixed node list, payload checksum, fragment size, and
// replication factor into a handle that can store and retrieve one
// payload's fragments.
type Pipeline struct {
	nodes             []string
	stores            []storageio.NodeStore
	payloadChecksum   [32]byte
	fragmentSize      int
	replicationFactor int
	guard             guard.Guard
	metrics           *metrics.Metrics
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithStores overrides the default local-filesystem NodeStore for each
// node with caller-supplied stores (e.g. S3-backed), indexed identically
// to nodes.
func WithStores(stores []storageio.NodeStore) Option {
	return func(p *Pipeline) { p.stores = stores }
}

// WithGuard overrides the default in-process write-once guard with a
// caller-supplied one (e.g. guard.NewRedisGuard, shared across pipeline
// instances or processes that might store the same payload checksum
// concurrently). Without this option each Pipeline gets its own
// in-memory guard, scoped to that instance only.
func WithGuard(g guard.Guard) Option {
	return func(p *Pipeline) { p.guard = g }
}

// WithMetrics attaches a Prometheus-backed recorder; every Store and
// Retrieve call reports duration, byte counts, and replica-fallback
// depth through it. Without this option metrics recording is skipped.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New constructs a Pipeline. nodes must be non-empty; fragmentSize and
// replicationFactor must be positive.
// Without WithStores, each node string is treated as a local directory
// path.
func New(nodes []string, payloadChecksum [32]byte, fragmentSize, replicationFactor int, opts ...Option) (*Pipeline, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("cryptofrag: %w: empty node list", errs.ErrInvalidInput)
	}
	if fragmentSize < 1 {
		return nil, fmt.Errorf("cryptofrag: %w: fragment size must be positive", errs.ErrInvalidInput)
	}
	if replicationFactor < 1 {
		return nil, fmt.Errorf("cryptofrag: %w: replication factor must be positive", errs.ErrInvalidInput)
	}

	p := &Pipeline{
		nodes:             nodes,
		payloadChecksum:   payloadChecksum,
		fragmentSize:      fragmentSize,
		replicationFactor: replicationFactor,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.stores == nil {
		stores := make([]storageio.NodeStore, len(nodes))
		for i, n := range nodes {
			stores[i] = storageio.NewLocalNodeStore(n)
		}
		p.stores = stores
	} else if len(p.stores) != len(nodes) {
		return nil, fmt.Errorf("cryptofrag: %w: stores length must match nodes length", errs.ErrInvalidInput)
	}

	if p.guard == nil {
		p.guard = guard.NewMemoryGuard()
	}

	return p, nil
}

// Store splits payload according to the pipeline's fragment size,
// encrypts every replica, and writes all blobs. maxConcurrency bounds
// in-flight I/O; 0 uses the cap internal/sizer computes for the payload
// size.
//
// Per spec.md §9's deterministic-nonce caveat, a given payload-checksum
// is claimed write-once: a second Store call for the same checksum is a
// no-op rather than re-encrypting (i, r) triples whose key material is
// already fixed by H. Callers that need to overwrite must guard.Release
// the checksum first.
func (p *Pipeline) Store(ctx context.Context, payload []byte, maxConcurrency int) error {
	start := time.Now()

	key := checksum.Digest(p.payloadChecksum).Hex()
	fragmentCount := sizer.FragmentCount(int64(len(payload)), p.fragmentSize)
	ctx, span := telemetry.StartStoreSpan(ctx, key, fragmentCount, p.replicationFactor)
	defer span.End()

	claimed, err := p.guard.Claim(ctx, key, 0)
	if err != nil {
		return fmt.Errorf("cryptofrag: guard claim: %w", err)
	}
	if p.metrics != nil {
		outcome := "already_claimed"
		if claimed {
			outcome = "claimed"
		}
		p.metrics.RecordGuardClaim(outcome)
	}
	if !claimed {
		return nil
	}

	if maxConcurrency == 0 {
		maxConcurrency = sizer.Concurrency(int64(len(payload)), 0)
	}
	prod := producer.New(p.nodes, p.stores, p.replicationFactor)
	prod.IOConcurrency = maxConcurrency
	prod.Metrics = p.metrics
	err = prod.Store(ctx, payload, p.payloadChecksum, p.fragmentSize)
	if p.metrics != nil {
		p.metrics.RecordStore(time.Since(start), len(payload))
	}
	return err
}

// RetrieveResult is the outcome of a Retrieve call.
type RetrieveResult struct {
	// Payload is the reassembled payload bytes for every fragment that
	// had at least one surviving replica, concatenated in ascending
	// fragment-id order.
	Payload []byte
	// Missing lists fragment-ids that had no surviving replica.
	Missing []int
}

// Retrieve reconstructs the payload from fragmentCount fragments.
// maxConcurrency bounds in-flight I/O; 0 lets the consumer default to a
// cap of fragmentCount (one in-flight read per fragment).
func (p *Pipeline) Retrieve(ctx context.Context, fragmentCount, maxConcurrency int) (RetrieveResult, error) {
	start := time.Now()

	key := checksum.Digest(p.payloadChecksum).Hex()
	ctx, span := telemetry.StartRetrieveSpan(ctx, key, fragmentCount)
	defer span.End()

	cons := consumer.New(p.stores, p.replicationFactor)
	cons.IOConcurrency = maxConcurrency
	cons.Metrics = p.metrics
	result, err := cons.Retrieve(ctx, p.payloadChecksum, fragmentCount)
	if err != nil {
		return RetrieveResult{}, err
	}
	if p.metrics != nil {
		p.metrics.RecordRetrieve(time.Since(start), len(result.Payload))
	}
	return RetrieveResult{Payload: result.Payload, Missing: result.Missing}, nil
}

// Checksum returns the SHA-256 payload-checksum of data, the sole input
// to key derivation.
func Checksum(data []byte) [32]byte {
	return checksum.Sum(data)
}

// OptimalFragmentSize returns the fragment size chosen for a payload of
// n bytes.
func OptimalFragmentSize(n int64) int {
	return sizer.FragmentSize(n)
}

// DynamicConcurrency returns the concurrency cap for a payload of n
// bytes. cpu defaults to the host CPU count when 0.
func DynamicConcurrency(n int64, cpu int) int {
	return sizer.Concurrency(n, cpu)
}

// DefaultReplicationFactor returns the replication-factor policy: 3 for
// payloads over 10 MiB, otherwise 2.
func DefaultReplicationFactor(n int64) int {
	return sizer.DefaultReplication(n)
}

// BatchSize returns the I/O submission wave size for a given fragment
// count.
func BatchSize(fragmentCount int) int {
	return sizer.BatchSize(fragmentCount)
}

// FragmentCount returns ceil(n / fragmentSize) for a payload of n bytes.
func FragmentCount(n int64, fragmentSize int) int {
	return sizer.FragmentCount(n, fragmentSize)
}
