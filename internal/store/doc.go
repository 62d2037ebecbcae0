// Package store implements the per-node versioned cache-aside store:
// an in-memory mapping from key to its cached versions, bounded by LRU
// eviction over whole keys and backed by write-through persistence.
// Reads fall through to persistence on miss and repopulate the cache.
package store
