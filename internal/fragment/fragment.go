// Package fragment implements per-fragment authenticated encryption and
// the on-disk blob framing: ciphertext ‖ GCM tag (16 bytes) ‖ SHA-256 of
// ciphertext (32 bytes).
//
// The ciphertext checksum is redundant with GCM's own authentication, but
// it lets a tampered blob be rejected before the (comparatively
// expensive) PBKDF2 key derivation and AES-GCM open are even attempted.
package fragment

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/nilsroemer/cryptofrag/internal/bufpool"
	"github.com/nilsroemer/cryptofrag/internal/checksum"
	"github.com/nilsroemer/cryptofrag/internal/errs"
	"github.com/nilsroemer/cryptofrag/internal/keyderiv"
)

// TagSize is the GCM authentication tag length in bytes.
const TagSize = 16

// TrailerSize is the combined length of the GCM tag and the ciphertext
// checksum appended to every stored blob.
const TrailerSize = TagSize + checksum.Size

// Encode derives the (key, nonce) for (fragmentID, replicaID) under
// payloadChecksum, AES-256-GCM encrypts compressed, and returns the framed
// blob: ciphertext ‖ tag ‖ checksum(ciphertext).
func Encode(payloadChecksum [32]byte, fragmentID, replicaID int, compressed []byte) ([]byte, error) {
	gcm, err := newGCM(payloadChecksum, fragmentID, replicaID)
	if err != nil {
		return nil, err
	}

	nonce := deriveNonce(payloadChecksum, fragmentID, replicaID)

	// Seal appends ciphertext‖tag to the destination slice; drawing that
	// slice from the pool avoids a fresh allocation for fragments that
	// fit within the pooled buffer's capacity.
	dst := bufpool.Global.Get64K(0)
	sealed := gcm.Seal(dst, nonce, compressed, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	sum := checksum.Sum(ciphertext)

	blob := make([]byte, 0, len(sealed)+checksum.Size)
	blob = append(blob, sealed...)
	blob = append(blob, sum.Bytes()...)
	bufpool.Global.Put64K(dst)
	return blob, nil
}

// Decode reverses Encode. It rejects blobs shorter than TrailerSize,
// blobs whose ciphertext checksum does not match, and blobs that fail GCM
// authentication — in that order, so the cheapest checks run first.
func Decode(payloadChecksum [32]byte, fragmentID, replicaID int, blob []byte) ([]byte, error) {
	if len(blob) < TrailerSize {
		return nil, errs.ErrMalformedFrame
	}

	ciphertextEnd := len(blob) - TrailerSize
	ciphertext := blob[:ciphertextEnd]
	tag := blob[ciphertextEnd : ciphertextEnd+TagSize]
	wantSum := blob[ciphertextEnd+TagSize:]

	gotSum := checksum.Sum(ciphertext)
	if !constantTimeEqual(gotSum.Bytes(), wantSum) {
		return nil, errs.ErrChecksumMismatch
	}

	gcm, err := newGCM(payloadChecksum, fragmentID, replicaID)
	if err != nil {
		return nil, err
	}
	nonce := deriveNonce(payloadChecksum, fragmentID, replicaID)

	sealed := bufpool.Global.Get64K(len(ciphertext) + TagSize)
	copy(sealed, ciphertext)
	copy(sealed[len(ciphertext):], tag)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	bufpool.Global.Put64K(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthFailure, err)
	}
	return plaintext, nil
}

func newGCM(payloadChecksum [32]byte, fragmentID, replicaID int) (cipher.AEAD, error) {
	key, _ := keyderiv.Derive(payloadChecksum, fragmentID, replicaID)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("fragment: new AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, keyderiv.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("fragment: new GCM: %w", err)
	}
	return gcm, nil
}

func deriveNonce(payloadChecksum [32]byte, fragmentID, replicaID int) []byte {
	_, nonce := keyderiv.Derive(payloadChecksum, fragmentID, replicaID)
	return nonce[:]
}

// constantTimeEqual compares two byte slices in constant time to avoid
// leaking ciphertext-checksum comparisons through timing side channels.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
