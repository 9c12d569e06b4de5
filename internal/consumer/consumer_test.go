package consumer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nilsroemer/cryptofrag/internal/checksum"
	"github.com/nilsroemer/cryptofrag/internal/placement"
	"github.com/nilsroemer/cryptofrag/internal/producer"
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

func TestConsumerRoundTripSingleFragment(t *testing.T) {
	ctx := context.Background()
	payload := []byte("round trip through producer and consumer")
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 3)
	require.NoError(t, producer.New(nil, stores, 2).Store(ctx, payload, hArr, len(payload)))

	result, err := New(stores, 2).Retrieve(ctx, hArr, 1)
	require.NoError(t, err)
	require.Empty(t, result.Missing)
	require.Equal(t, payload, result.Payload)
}

func TestConsumerRoundTripMultiFragment(t *testing.T) {
	ctx := context.Background()
	payload := make([]byte, 350*1024)
	for i := range payload {
		payload[i] = byte(i % 241)
	}
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 4)
	fragmentSize := 100 * 1024
	require.NoError(t, producer.New(nil, stores, 2).Store(ctx, payload, hArr, fragmentSize))

	fragmentCount := (len(payload) + fragmentSize - 1) / fragmentSize
	result, err := New(stores, 2).Retrieve(ctx, hArr, fragmentCount)
	require.NoError(t, err)
	require.Empty(t, result.Missing)
	require.Equal(t, payload, result.Payload)
}

func TestConsumerFallsBackToSecondReplica(t *testing.T) {
	ctx := context.Background()
	payload := []byte("first replica will be destroyed")
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 3)
	require.NoError(t, producer.New(nil, stores, 2).Store(ctx, payload, hArr, len(payload)))

	node0 := placement.NodeIndex(0, 0, 2, len(stores))
	name0 := placement.FileName(0, 0)
	require.NoError(t, stores[node0].Remove(ctx, name0))

	result, err := New(stores, 2).Retrieve(ctx, hArr, 1)
	require.NoError(t, err)
	require.Empty(t, result.Missing)
	require.Equal(t, payload, result.Payload)
}

func TestConsumerFallsBackOnCorruptedReplica(t *testing.T) {
	ctx := context.Background()
	payload := []byte("first replica will be bit-flipped")
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 3)
	require.NoError(t, producer.New(nil, stores, 2).Store(ctx, payload, hArr, len(payload)))

	node0 := placement.NodeIndex(0, 0, 2, len(stores))
	name0 := placement.FileName(0, 0)
	blob, err := stores[node0].Read(ctx, name0)
	require.NoError(t, err)
	corrupted := append([]byte(nil), blob...)
	corrupted[0] ^= 0xFF
	require.NoError(t, stores[node0].Write(ctx, name0, corrupted))

	result, err := New(stores, 2).Retrieve(ctx, hArr, 1)
	require.NoError(t, err)
	require.Empty(t, result.Missing)
	require.Equal(t, payload, result.Payload)
}

func TestConsumerReportsMissingFragmentWhenAllReplicasGone(t *testing.T) {
	ctx := context.Background()
	payload := []byte("every replica of this fragment will vanish")
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 2)
	require.NoError(t, producer.New(nil, stores, 2).Store(ctx, payload, hArr, len(payload)))

	for r := 0; r < 2; r++ {
		node := placement.NodeIndex(0, r, 2, len(stores))
		name := placement.FileName(0, r)
		require.NoError(t, stores[node].Remove(ctx, name))
	}

	result, err := New(stores, 2).Retrieve(ctx, hArr, 1)
	require.NoError(t, err)
	require.Equal(t, []int{0}, result.Missing)
	require.Empty(t, result.Payload)
}

func TestConsumerPartialResultWithSomeFragmentsMissing(t *testing.T) {
	ctx := context.Background()
	payload := make([]byte, 250*1024)
	for i := range payload {
		payload[i] = byte(i % 199)
	}
	h := checksum.Sum(payload)
	hArr := [32]byte(h)

	stores := newLocalStores(t, 4)
	fragmentSize := 100 * 1024
	require.NoError(t, producer.New(nil, stores, 2).Store(ctx, payload, hArr, fragmentSize))

	fragmentCount := (len(payload) + fragmentSize - 1) / fragmentSize
	require.GreaterOrEqual(t, fragmentCount, 2)

	for r := 0; r < 2; r++ {
		node := placement.NodeIndex(1, r, 2, len(stores))
		name := placement.FileName(1, r)
		require.NoError(t, stores[node].Remove(ctx, name))
	}

	result, err := New(stores, 2).Retrieve(ctx, hArr, fragmentCount)
	require.NoError(t, err)
	require.Equal(t, []int{1}, result.Missing)
	require.Equal(t, payload[:fragmentSize], result.Payload[:fragmentSize])
}

func TestConsumerRejectsEmptyStoreList(t *testing.T) {
	ctx := context.Background()
	_, err := New(nil, 2).Retrieve(ctx, [32]byte{}, 1)
	require.Error(t, err)
}
