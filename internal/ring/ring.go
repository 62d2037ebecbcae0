package ring

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultVirtualNodes is the number of ring positions per physical node.
const DefaultVirtualNodes = 150

// ErrEmptyRing is returned by Locate when no node is registered.
var ErrEmptyRing = errors.New("ring: no nodes registered")

// Ring implements consistent hashing with virtual nodes. Each node
// contributes virtualNodes positions on a 64-bit hash circle; a key is
// owned by the node holding the nearest position clockwise from the
// key's hash.
type Ring struct {
	mu           sync.RWMutex
	virtualNodes int
	points       []uint64          // sorted hash positions
	owners       map[uint64]string // hash position -> node
	order        []string          // nodes in insertion order
	members      map[string]struct{}
}

// New creates an empty ring. virtualNodes <= 0 selects the default.
func New(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}
	return &Ring{
		virtualNodes: virtualNodes,
		owners:       make(map[uint64]string),
		members:      make(map[string]struct{}),
	}
}

// hashPoint maps a string onto the ring using SHA-256 truncated to the
// first 8 bytes. Same input always yields the same position.
func hashPoint(s string) uint64 {
	sum := sha256.Sum256([]byte(s))
	return binary.BigEndian.Uint64(sum[:8])
}

// AddNode inserts every virtual node for node, keeping the position
// slice sorted. Adding a node that is already present is a no-op.
// If a virtual node hashes onto an occupied position, the later
// insertion takes over that position.
func (r *Ring) AddNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[node]; ok {
		return
	}
	r.members[node] = struct{}{}
	r.order = append(r.order, node)

	for i := 0; i < r.virtualNodes; i++ {
		h := hashPoint(fmt.Sprintf("%s#%d", node, i))
		if _, taken := r.owners[h]; taken {
			r.owners[h] = node
			continue
		}
		r.owners[h] = node
		idx := sort.Search(len(r.points), func(j int) bool {
			return r.points[j] >= h
		})
		r.points = append(r.points, 0)
		copy(r.points[idx+1:], r.points[idx:])
		r.points[idx] = h
	}
}

// RemoveNode deletes every position owned by node. Positions owned by
// other nodes are untouched, so only keys previously mapped to node
// move elsewhere.
func (r *Ring) RemoveNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[node]; !ok {
		return
	}
	delete(r.members, node)
	for i, n := range r.order {
		if n == node {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	kept := r.points[:0]
	for _, h := range r.points {
		if r.owners[h] == node {
			delete(r.owners, h)
			continue
		}
		kept = append(kept, h)
	}
	r.points = kept
}

// Locate returns the node owning key. For a fixed membership this is a
// pure function of key.
func (r *Ring) Locate(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.points) == 0 {
		return "", ErrEmptyRing
	}

	h := hashPoint(key)
	idx := sort.Search(len(r.points), func(i int) bool {
		return r.points[i] >= h
	})
	if idx == len(r.points) {
		idx = 0 // wrap around past the last position
	}
	return r.owners[r.points[idx]], nil
}

// Nodes returns the members in insertion order.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Contains reports whether node is a member of the ring.
func (r *Ring) Contains(node string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[node]
	return ok
}

// Len returns the number of physical nodes.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
