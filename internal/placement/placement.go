// Package placement is the deterministic, stateless mapping
// from (fragment-id, replica-id) to a node index and blob file name.
package placement

import "fmt"

// NodeIndex returns the index into the node list that owns replica r of
// fragment i: (i*replicationFactor + r) mod nodeCount.
//
// A replication factor greater than the node count is tolerated but
// collocates replicas onto fewer physical nodes, lowering fault
// tolerance; callers should warn when constructing a Placer that way.
func NodeIndex(fragmentID, replicaID, replicationFactor, nodeCount int) int {
	return (fragmentID*replicationFactor + replicaID) % nodeCount
}

// FileName returns the blob file name for one (fragment-id, replica-id)
// pair: "fragment_{i}_replica_{r}". Uniqueness of (i, r) pairs makes
// collisions impossible.
func FileName(fragmentID, replicaID int) string {
	return fmt.Sprintf("fragment_%d_replica_%d", fragmentID, replicaID)
}

// Placer resolves (fragment-id, replica-id) pairs to a node index and file
// name against a fixed node list established at construction.
type Placer struct {
	nodeCount         int
	replicationFactor int
}

// New constructs a Placer for a fixed node count and replication factor.
func New(nodeCount, replicationFactor int) Placer {
	return Placer{nodeCount: nodeCount, replicationFactor: replicationFactor}
}

// NodeIndex returns the node index for (fragmentID, replicaID).
func (p Placer) NodeIndex(fragmentID, replicaID int) int {
	return NodeIndex(fragmentID, replicaID, p.replicationFactor, p.nodeCount)
}

// Warns reports whether this placer's replication factor collocates
// replicas onto fewer nodes than exist (R > M).
func (p Placer) Warns() bool {
	return p.replicationFactor > p.nodeCount
}
