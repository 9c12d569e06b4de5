package fragment

import (
	"errors"
	"testing"

	"github.com/nilsroemer/cryptofrag/internal/errs"
	"github.com/stretchr/testify/require"
)

func h() [32]byte {
	var v [32]byte
	for i := range v {
		v[i] = byte(i * 3)
	}
	return v
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	blob, err := Encode(h(), 2, 0, []byte("compressed plaintext bytes"))
	require.NoError(t, err)
	require.Greater(t, len(blob), TrailerSize)

	out, err := Decode(h(), 2, 0, blob)
	require.NoError(t, err)
	require.Equal(t, []byte("compressed plaintext bytes"), out)
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode(h(), 0, 0, make([]byte, TrailerSize-1))
	require.True(t, errors.Is(err, errs.ErrMalformedFrame))
}

func TestDecodeChecksumMismatch(t *testing.T) {
	blob, err := Encode(h(), 1, 0, []byte("data"))
	require.NoError(t, err)

	// Flip a bit inside the ciphertext region without touching the tag or
	// checksum trailer: GCM auth would also fail, but the checksum check
	// runs first.
	blob[0] ^= 0x01

	_, err = Decode(h(), 1, 0, blob)
	require.True(t, errors.Is(err, errs.ErrChecksumMismatch))
}

func TestDecodeAuthFailureWrongIndices(t *testing.T) {
	blob, err := Encode(h(), 1, 0, []byte("data"))
	require.NoError(t, err)

	// The checksum covers only the ciphertext, so the unchanged blob still
	// passes the checksum check under the wrong replica id; GCM
	// authentication must then fail, since that replica's key differs.
	_, err = Decode(h(), 1, 1, blob)
	require.ErrorIs(t, err, errs.ErrAuthFailure)
}

func TestDecodeDifferentReplicasProduceDifferentBlobs(t *testing.T) {
	blobA, err := Encode(h(), 4, 0, []byte("same compressed bytes"))
	require.NoError(t, err)
	blobB, err := Encode(h(), 4, 1, []byte("same compressed bytes"))
	require.NoError(t, err)
	require.NotEqual(t, blobA, blobB)
}

func TestEncodeDeterministic(t *testing.T) {
	blobA, err := Encode(h(), 4, 0, []byte("same compressed bytes"))
	require.NoError(t, err)
	blobB, err := Encode(h(), 4, 0, []byte("same compressed bytes"))
	require.NoError(t, err)
	require.Equal(t, blobA, blobB)
}
