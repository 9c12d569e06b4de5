package producer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nilsroemer/cryptofrag/internal/checksum"
	"github.com/nilsroemer/cryptofrag/internal/compress"
	"github.com/nilsroemer/cryptofrag/internal/fragment"
	"github.com/nilsroemer/cryptofrag/internal/placement"
	"github.com/nilsroemer/cryptofrag/internal/storageio"
	"github.com/stretchr/testify/require"
)

func newLocalStores(t *testing.T, n int) []storageio.NodeStore {
	t.Helper()
	stores := make([]storageio.NodeStore, n)
	for i := 0; i < n; i++ {
		stores[i] = storageio.NewLocalNodeStore(filepath.Join(t.TempDir(), "node"))
	}
	return stores
}

func readAndDecode(t *testing.T, stores []storageio.NodeStore, replicationFactor int, h [32]byte, fragmentID, replicaID int) []byte {
	t.Helper()
	node := placement.NodeIndex(fragmentID, replicaID, replicationFactor, len(stores))
	name := placement.FileName(fragmentID, replicaID)
	blob, err := stores[node].Read(context.Background(), name)
	require.NoError(t, err)

	compressed, err := fragment.Decode(h, fragmentID, replicaID, blob)
	require.NoError(t, err)

	plain, err := compress.Decompress(compressed)
	require.NoError(t, err)
	return plain
}

func TestProducerInlineFastPath(t *testing.T) {
	ctx := context.Background()
	payload := []byte("small payload under the fast path threshold")
	h := checksum.Sum(payload)

	stores := newLocalStores(t, 3)
	p := New(nil, stores, 2)

	err := p.Store(ctx, payload, [32]byte(h), len(payload))
	require.NoError(t, err)

	for r := 0; r < 2; r++ {
		got := readAndDecode(t, stores, 2, [32]byte(h), 0, r)
		require.Equal(t, payload, got)
	}
}

func TestProducerScheduledMultiFragment(t *testing.T) {
	ctx := context.Background()
	payload := make([]byte, 500*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 4)
	p := New(nil, stores, 2)

	fragmentSize := 100 * 1024
	err := p.Store(ctx, payload, hArr, fragmentSize)
	require.NoError(t, err)

	fragmentCount := (len(payload) + fragmentSize - 1) / fragmentSize
	reassembled := make([]byte, 0, len(payload))
	for i := 0; i < fragmentCount; i++ {
		frag := readAndDecode(t, stores, 2, hArr, i, 0)
		reassembled = append(reassembled, frag...)
	}
	require.Equal(t, payload, reassembled)
}

func TestProducerDisableFastPathForcesScheduledPath(t *testing.T) {
	ctx := context.Background()
	payload := []byte("tiny, but forced through the scheduler path")
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 2)
	p := New(nil, stores, 1)
	p.DisableFastPath = true

	err := p.Store(ctx, payload, hArr, len(payload))
	require.NoError(t, err)

	got := readAndDecode(t, stores, 1, hArr, 0, 0)
	require.Equal(t, payload, got)
}

func TestProducerReplicasAreDistinctCiphertext(t *testing.T) {
	ctx := context.Background()
	payload := []byte("replica distinctness check")
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 3)
	p := New(nil, stores, 3)

	err := p.Store(ctx, payload, hArr, len(payload))
	require.NoError(t, err)

	var blobs [][]byte
	for r := 0; r < 3; r++ {
		node := placement.NodeIndex(0, r, 3, len(stores))
		name := placement.FileName(0, r)
		blob, err := stores[node].Read(ctx, name)
		require.NoError(t, err)
		blobs = append(blobs, blob)
	}
	require.NotEqual(t, blobs[0], blobs[1])
	require.NotEqual(t, blobs[1], blobs[2])
}

func TestProducerAbortsOnTooFewStores(t *testing.T) {
	ctx := context.Background()
	p := New(nil, nil, 2)
	err := p.Store(ctx, []byte("x"), [32]byte{}, 1)
	require.Error(t, err)
}

func TestProducerZeroLengthPayload(t *testing.T) {
	ctx := context.Background()
	h := checksum.Sum(nil)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 2)
	p := New(nil, stores, 2)

	err := p.Store(ctx, nil, hArr, 0)
	require.NoError(t, err)

	got := readAndDecode(t, stores, 2, hArr, 0, 0)
	require.Empty(t, got)
}
