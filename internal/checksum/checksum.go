// Package checksum computes the SHA-256 digests used throughout the
// pipeline: the payload-checksum that seeds key derivation (C3) and the
// per-blob ciphertext checksum that lets a corrupted replica be rejected
// before key derivation is even attempted (C4).
package checksum

import (
	"encoding/hex"

	"github.com/minio/sha256-simd"
)

// Size is the digest length in bytes.
const Size = sha256.Size

// Digest is a SHA-256 digest.
type Digest [Size]byte

// Sum returns the SHA-256 digest of data.
//
// sha256-simd dispatches to AVX2/SHA-NI on amd64 and to the ARMv8 crypto
// extensions on arm64, falling back to the standard library's generic
// implementation everywhere else; call sites never need to care which
// path ran.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// Equal reports whether two digests are identical.
func (d Digest) Equal(other Digest) bool {
	return d == other
}

// Hex returns the lowercase hex encoding of the digest.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns the digest as a byte slice.
func (d Digest) Bytes() []byte {
	return d[:]
}

// FromHex parses a hex-encoded digest.
func FromHex(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(b) != Size {
		return d, errInvalidLength(len(b))
	}
	copy(d[:], b)
	return d, nil
}

type errInvalidLength int

func (e errInvalidLength) Error() string {
	return "checksum: invalid digest length"
}
