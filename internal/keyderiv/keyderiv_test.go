package keyderiv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleChecksum() [32]byte {
	var h [32]byte
	for i := range h {
		h[i] = byte(i)
	}
	return h
}

func TestDeriveDeterministic(t *testing.T) {
	h := sampleChecksum()
	k1, n1 := Derive(h, 3, 1)
	k2, n2 := Derive(h, 3, 1)
	require.Equal(t, k1, k2)
	require.Equal(t, n1, n2)
}

func TestDeriveDiffersByFragment(t *testing.T) {
	h := sampleChecksum()
	k0, n0 := Derive(h, 0, 0)
	k1, n1 := Derive(h, 1, 0)
	require.NotEqual(t, k0, k1)
	require.NotEqual(t, n0, n1)
}

func TestDeriveDiffersByReplica(t *testing.T) {
	h := sampleChecksum()
	k0, n0 := Derive(h, 5, 0)
	k1, n1 := Derive(h, 5, 1)
	require.NotEqual(t, k0, k1)
	// The nonce is the seed's first NonceSize bytes, which end before the
	// replica id; replicas of one fragment are told apart by their keys.
	require.Equal(t, n0, n1)
}

func TestDeriveDiffersByChecksum(t *testing.T) {
	h1 := sampleChecksum()
	h2 := sampleChecksum()
	h2[0] ^= 0xff

	k1, _ := Derive(h1, 0, 0)
	k2, _ := Derive(h2, 0, 0)
	require.NotEqual(t, k1, k2)
}

// TestKeyUniqueness checks that across a modest fragment/replica grid,
// no two derived keys collide. Nonces alone repeat across the replicas
// of one fragment, so uniqueness is checked on the keys.
func TestKeyUniqueness(t *testing.T) {
	h := sampleChecksum()
	seen := make(map[[KeySize]byte]bool)
	for i := 0; i < 20; i++ {
		for r := 0; r < 4; r++ {
			key, _ := Derive(h, i, r)
			require.False(t, seen[key], "key collision at fragment %d replica %d", i, r)
			seen[key] = true
		}
	}
}
