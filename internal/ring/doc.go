// Package ring implements a consistent hashing ring with virtual nodes.
// It maps keys to backend nodes deterministically and keeps key movement
// minimal when membership changes: adding or removing one node only
// reassigns the keys falling in that node's virtual-node ranges.
package ring
