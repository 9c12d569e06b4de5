package storageio

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/nilsroemer/cryptofrag/internal/debug"
	"github.com/nilsroemer/cryptofrag/internal/errs"
)

// LocalNodeStore is a NodeStore backed by a local directory, treated as
// an opaque handle to one node. Writes are whole-file writes via a
// temp-file-then-rename so a crash mid-write never leaves a
// half-written blob visible under its final name — blobs are atomic
// from the application's perspective, relying on the filesystem's
// rename semantics to provide that.
type LocalNodeStore struct {
	path string

	// Logger receives this store's Debug/Error IO events. Defaults to a
	// standalone logrus.Logger if left nil.
	Logger *logrus.Logger
}

// NewLocalNodeStore returns a NodeStore rooted at path.
func NewLocalNodeStore(path string) *LocalNodeStore {
	return &LocalNodeStore{path: path}
}

func (n *LocalNodeStore) String() string { return n.path }

func (n *LocalNodeStore) logger() *logrus.Entry {
	l := n.Logger
	if l == nil {
		l = logrus.New()
	}
	return l.WithField("component", "storageio").WithField("node", n.path)
}

// EnsureDir creates the node directory, matching the original's
// crystal_storage/utils.py ensure_directories. The Producer calls it
// during Store before writing; Write itself does not create the
// directory.
func (n *LocalNodeStore) EnsureDir(ctx context.Context) error {
	if err := os.MkdirAll(n.path, 0o755); err != nil {
		return wrapIO("ensure_dir", n.path, "", err)
	}
	return nil
}

func (n *LocalNodeStore) Write(ctx context.Context, name string, blob []byte) error {
	full := filepath.Join(n.path, name)
	tmp := full + ".tmp"

	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		n.logger().WithField("name", name).WithError(err).Error("blob write failed")
		return wrapIO("write", n.path, name, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		n.logger().WithField("name", name).WithError(err).Error("blob write failed")
		return wrapIO("write", n.path, name, err)
	}
	if debug.Enabled() {
		n.logger().WithField("name", name).Debug("blob written")
	}
	return nil
}

func (n *LocalNodeStore) Read(ctx context.Context, name string) ([]byte, error) {
	full := filepath.Join(n.path, name)
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, wrapIO("read", n.path, name, errs.ErrNotFound)
		}
		n.logger().WithField("name", name).WithError(err).Error("blob read failed")
		return nil, wrapIO("read", n.path, name, err)
	}
	if debug.Enabled() {
		n.logger().WithField("name", name).Debug("blob read")
	}
	return data, nil
}

func (n *LocalNodeStore) Exists(ctx context.Context, name string) (bool, error) {
	full := filepath.Join(n.path, name)
	_, err := os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, wrapIO("stat", n.path, name, err)
}

func (n *LocalNodeStore) Remove(ctx context.Context, name string) error {
	full := filepath.Join(n.path, name)
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return wrapIO("remove", n.path, name, err)
	}
	return nil
}
