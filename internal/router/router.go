package router

import (
	"errors"
	"fmt"
	"strings"

	"distkv/internal/ring"
)

// ErrNoServers is returned when routing is attempted with an empty ring.
var ErrNoServers = errors.New("router: no servers configured")

// MissingTargetError is returned for administrative paths called
// without an explicit target node.
type MissingTargetError struct {
	Path  string
	Known []string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("router: server parameter is required for %s (known servers: %s)",
		e.Path, strings.Join(e.Known, ", "))
}

// UnknownNodeError is returned when an explicit target names a node
// that is not in the ring.
type UnknownNodeError struct {
	Node  string
	Known []string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("router: server %q not found (known servers: %s)",
		e.Node, strings.Join(e.Known, ", "))
}

// adminPaths are the stats endpoints that enforce explicit targeting;
// they carry no routing key and silently falling back to a node would
// make their output meaningless.
var adminPaths = map[string]bool{
	"cache/stats": true,
	"db/stats":    true,
}

// Router translates an inbound operation into a target node and records
// per-node observability counters.
type Router struct {
	ring    *ring.Ring
	metrics *Metrics
}

// New creates a router over the given ring.
func New(r *ring.Ring) *Router {
	return &Router{ring: r, metrics: NewMetrics()}
}

// Resolve picks the node that should serve path. Paths addressing a key
// (put/<key>, get/<key>) route by consistent hashing and ignore
// override. Administrative stats paths require override to name a ring
// member. Every other path falls back to the first node in insertion
// order; this silent fallback is deliberate, convenience endpoints
// should not hard-fail for lack of a target.
func (rt *Router) Resolve(path, override string) (string, error) {
	path = strings.TrimPrefix(path, "/")

	if key := routingKey(path); key != "" {
		node, err := rt.ring.Locate(key)
		if errors.Is(err, ring.ErrEmptyRing) {
			return "", ErrNoServers
		}
		if err != nil {
			return "", err
		}
		return node, nil
	}

	nodes := rt.ring.Nodes()
	if len(nodes) == 0 {
		return "", ErrNoServers
	}

	if adminPaths[path] {
		if override == "" {
			return "", &MissingTargetError{Path: path, Known: nodes}
		}
		if !rt.ring.Contains(override) {
			return "", &UnknownNodeError{Node: override, Known: nodes}
		}
		return override, nil
	}

	return nodes[0], nil
}

// Metrics exposes the router's counters for recording and reporting.
func (rt *Router) Metrics() *Metrics { return rt.metrics }

// Nodes returns the ring membership in insertion order.
func (rt *Router) Nodes() []string { return rt.ring.Nodes() }

// Snapshot reports per-node counters for every currently known node,
// including nodes that have received no traffic.
func (rt *Router) Snapshot() map[string]NodeStats {
	return rt.metrics.Snapshot(rt.ring.Nodes())
}

// Insights derives the hot-spot and slow-node report from the current
// snapshot.
func (rt *Router) Insights() (Insights, error) {
	return rt.metrics.Insights(rt.ring.Nodes())
}

// routingKey extracts the storage key from key-addressing paths.
// The remainder after the first slash is the key, slashes included.
func routingKey(path string) string {
	for _, prefix := range []string{"put/", "get/"} {
		if strings.HasPrefix(path, prefix) {
			return path[len(prefix):]
		}
	}
	return ""
}
