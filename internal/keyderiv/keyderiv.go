// Package keyderiv derives a deterministic (key, nonce) pair
// from (payload-checksum, fragment-id, replica-id). Determinism is what
// lets the Consumer re-derive key material from nothing but the
// payload-checksum and the indices it is asked to fetch — no key store,
// no key material ever touches disk.
//
// Reusing a nonce to encrypt two different plaintexts under the same
// key breaks AES-GCM's confidentiality guarantee, so this is safe only
// because a given (payload-checksum, fragment-id, replica-id) triple is
// encrypted at most once with one plaintext; internal/guard enforces
// that at the Pipeline level.
package keyderiv

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// Iterations is the PBKDF2 round count.
	Iterations = 100_000
)

// Seed builds the deterministic seed for a (payload-checksum, fragment-id,
// replica-id) triple: utf8(decimal(i) ":" hex(H) ":" decimal(r)).
func Seed(payloadChecksum [32]byte, fragmentID, replicaID int) []byte {
	return []byte(fmt.Sprintf("%d:%x:%d", fragmentID, payloadChecksum, replicaID))
}

// Derive returns the AES-256 key and GCM nonce for one (fragment-id,
// replica-id) pair of one payload. The salt is the first 16 bytes of the
// seed and the nonce is its first 12 bytes; both are sliced, not hashed
// again, so the derivation stays a pure function of its inputs.
func Derive(payloadChecksum [32]byte, fragmentID, replicaID int) (key [KeySize]byte, nonce [NonceSize]byte) {
	seed := Seed(payloadChecksum, fragmentID, replicaID)

	salt := seed
	if len(salt) > 16 {
		salt = salt[:16]
	}

	derived := pbkdf2.Key(seed, salt, Iterations, KeySize, sha256.New)
	copy(key[:], derived)
	copy(nonce[:], seed[:NonceSize])
	return key, nonce
}
