// Package storageio provides asynchronous whole-file read/write of
// framed fragment blobs against a fixed set of storage nodes.
//
// NodeStore is a file-system-like interface supporting directory
// creation, whole-file read/write, existence checks, and removal. Two
// backends are provided: LocalNodeStore, an opaque local directory
// handle, and S3NodeStore, an alternate backend where a "node" is an S3
// bucket+prefix instead of a directory — still a fixed, statically
// configured address, not a dynamic cluster.
package storageio

import (
	"context"
	"errors"
	"fmt"

	"github.com/nilsroemer/cryptofrag/internal/errs"
)

// NodeStore is one storage node: a place blobs can be written to and
// read from by file name. Implementations must be safe for concurrent
// use — Producer and Consumer call them from many goroutines at once.
type NodeStore interface {
	// EnsureDir prepares the node for writes (e.g. mkdir -p). The Producer
	// calls it during Store, before writing to the node.
	EnsureDir(ctx context.Context) error

	// Write stores blob under name, overwriting any existing blob.
	Write(ctx context.Context, name string, blob []byte) error

	// Read returns the blob stored under name. Returns an error wrapping
	// errs.ErrNotFound if no such blob exists.
	Read(ctx context.Context, name string) ([]byte, error)

	// Exists reports whether a blob is stored under name.
	Exists(ctx context.Context, name string) (bool, error)

	// Remove deletes the blob stored under name. Removing a name that
	// does not exist is not an error.
	Remove(ctx context.Context, name string) error

	// String returns a short human-readable identifier for logging.
	String() string
}

// ReadResult is what a Read produces when driven through the scheduler's
// I/O tier: either the blob bytes, or an error that is never itself
// fatal to the caller — both Producer and Consumer decide what a failure
// means at their own layer.
type ReadResult struct {
	Name string
	Blob []byte
	Err  error
}

// IsNotFound reports whether err indicates the blob does not exist,
// across any NodeStore backend.
func IsNotFound(err error) bool {
	return errors.Is(err, errs.ErrNotFound)
}

// wrapIO is the shared helper backends use to turn a raw filesystem/SDK
// error into the errs.IoFailure shape, keeping the wrapped message
// uniform across LocalNodeStore and S3NodeStore.
func wrapIO(op, node, name string, cause error) error {
	return errs.IoFailure(op, fmt.Sprintf("%s/%s", node, name), cause)
}
