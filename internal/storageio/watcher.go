package storageio

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// NodeWatcher observes a LocalNodeStore's directory for blobs being
// removed, written or renamed. It reports every such change, including
// the Producer's own writes; it does not tell pipeline writes apart from
// external ones. It is advisory only: it delivers Events to the caller
// and never blocks a read or write.
//
// This is not a durability mechanism — the pipeline makes no durability
// guarantee stronger than whatever the underlying file system provides;
// it only shortens the time between an external loss and the operator
// noticing, which matters because the Consumer itself would otherwise
// only discover the loss on the next retrieve.
type NodeWatcher struct {
	watcher *fsnotify.Watcher
	Events  chan NodeEvent
	log     *logrus.Entry
}

// NodeEvent describes one filesystem change observed under a node
// directory.
type NodeEvent struct {
	Node string
	Name string
	Op   string
}

// NewNodeWatcher starts watching nodePath for changes. Callers should
// range over Events and call Close when done.
func NewNodeWatcher(nodePath string, log *logrus.Logger) (*NodeWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(nodePath); err != nil {
		_ = w.Close()
		return nil, err
	}

	if log == nil {
		log = logrus.New()
	}

	nw := &NodeWatcher{
		watcher: w,
		Events:  make(chan NodeEvent, 32),
		log:     log.WithField("component", "node_watcher").WithField("node", nodePath),
	}
	go nw.pump(nodePath)
	return nw, nil
}

func (nw *NodeWatcher) pump(node string) {
	for {
		select {
		case ev, ok := <-nw.watcher.Events:
			if !ok {
				close(nw.Events)
				return
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			nw.log.WithField("op", ev.Op.String()).Debug("node blob changed externally")
			select {
			case nw.Events <- NodeEvent{Node: node, Name: ev.Name, Op: ev.Op.String()}:
			default:
				nw.log.Warn("node watcher event buffer full, dropping event")
			}
		case err, ok := <-nw.watcher.Errors:
			if !ok {
				return
			}
			nw.log.WithError(err).Warn("node watcher error")
		}
	}
}

// Close stops the watcher.
func (nw *NodeWatcher) Close() error {
	return nw.watcher.Close()
}
