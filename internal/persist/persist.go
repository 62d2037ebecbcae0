package persist

import (
	"errors"

	"distkv/internal/value"
)

// ErrNotFound is returned when a key, or a specific version of a key,
// does not exist.
var ErrNotFound = errors.New("persist: not found")

// Latest selects the highest version of a key in Get.
const Latest = 0

// Operation describes the effect of a Put.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// PutResult reports the version minted by a Put. PreviousVersion is 0
// when the key did not exist before.
type PutResult struct {
	Operation       Operation
	Key             string
	NewVersion      int
	PreviousVersion int
	Timestamp       int64 // unix milliseconds, assigned at write time
}

// Record is one immutable (key, version) entry.
type Record struct {
	Value     value.Value
	Version   int
	Timestamp int64 // unix milliseconds
}

// Stats summarizes the durable state.
type Stats struct {
	TotalKeys        int   `json:"total_keys"`
	TotalVersions    int   `json:"total_versions"`
	StorageSizeBytes int64 `json:"database_size_bytes"`
}

// Store is the durable record keeper consumed by the versioned cache.
// Versions for a key are assigned strictly increasing from 1 with no
// gaps, and are never overwritten or deleted.
type Store interface {
	// Put durably stores value as the next version of key.
	Put(key string, val value.Value) (PutResult, error)

	// Get returns the given version of key, or the highest version when
	// version is Latest. Returns ErrNotFound if the key or the exact
	// version does not exist.
	Get(key string, version int) (Record, error)

	// Stats reports key, version and size totals.
	Stats() (Stats, error)
}
