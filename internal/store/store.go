package store

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"distkv/internal/persist"
	"distkv/internal/value"
)

// DefaultMaxCacheSize bounds the cache when no size is configured.
const DefaultMaxCacheSize = 100

// Source tags where a Get result was served from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
)

// PutResponse mirrors the persistence result plus the number of
// versions currently cached for the key.
type PutResponse struct {
	Operation       persist.Operation `json:"operation"`
	Key             string            `json:"key"`
	NewVersion      int               `json:"new_version"`
	PreviousVersion int               `json:"previous_version,omitempty"`
	TotalVersions   int               `json:"total_versions"`
}

// GetResult is one versioned value with its provenance.
type GetResult struct {
	Value     value.Value `json:"value"`
	Version   int         `json:"version"`
	Timestamp int64       `json:"timestamp"`
	Source    Source      `json:"source"`
}

// CacheStats describes the current cache occupancy.
type CacheStats struct {
	CurrentSize int  `json:"current_size"`
	MaxSize     int  `json:"max_size"`
	IsFull      bool `json:"is_full"`
}

// entry holds every cached version of one key, ascending by version.
// The last record is always the highest version cached.
type entry struct {
	records []persist.Record
}

// insert adds rec keeping version order, skipping versions already
// cached.
func (e *entry) insert(rec persist.Record) {
	idx := sort.Search(len(e.records), func(i int) bool {
		return e.records[i].Version >= rec.Version
	})
	if idx < len(e.records) && e.records[idx].Version == rec.Version {
		return
	}
	e.records = append(e.records, persist.Record{})
	copy(e.records[idx+1:], e.records[idx:])
	e.records[idx] = rec
}

// find returns the cached record for version, or false.
func (e *entry) find(version int) (persist.Record, bool) {
	idx := sort.Search(len(e.records), func(i int) bool {
		return e.records[i].Version >= version
	})
	if idx < len(e.records) && e.records[idx].Version == version {
		return e.records[idx], true
	}
	return persist.Record{}, false
}

// Store serves multi-version values through a bounded in-memory cache
// with write-through durability. One coarse lock covers the whole of
// Put and Get, including the persistence call: concurrent requests to
// the same node execute store operations sequentially, which keeps the
// version and eviction invariants simple at the cost of write
// concurrency.
type Store struct {
	mu      sync.Mutex
	cache   *lru.Cache // key -> *entry, recency-ordered
	maxSize int
	db      persist.Store
}

// New creates a store over db bounded to maxCacheSize cached keys.
// maxCacheSize <= 0 selects the default.
func New(db persist.Store, maxCacheSize int) (*Store, error) {
	if maxCacheSize <= 0 {
		maxCacheSize = DefaultMaxCacheSize
	}
	cache, err := lru.New(maxCacheSize)
	if err != nil {
		return nil, fmt.Errorf("store: cache: %w", err)
	}
	return &Store{cache: cache, maxSize: maxCacheSize, db: db}, nil
}

// Put writes value through to persistence first, then caches the record
// at the minted version. Inserting a new key at capacity evicts the
// least-recently-used key (all its cached versions); updates to cached
// keys never evict.
func (s *Store) Put(key string, val value.Value) (PutResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Put(key, val)
	if err != nil {
		return PutResponse{}, fmt.Errorf("store: write-through %q: %w", key, err)
	}

	e := s.entryFor(key)
	e.insert(persist.Record{
		Value:     val,
		Version:   res.NewVersion,
		Timestamp: res.Timestamp,
	})
	s.cache.Add(key, e)

	return PutResponse{
		Operation:       res.Operation,
		Key:             key,
		NewVersion:      res.NewVersion,
		PreviousVersion: res.PreviousVersion,
		TotalVersions:   len(e.records),
	}, nil
}

// Get serves key from the cache when possible, refreshing its recency.
// version persist.Latest selects the highest cached version. Any miss
// resolved by persistence populates the cache, even for a specific
// historical version. Returns persist.ErrNotFound when the key, or the
// exact version, exists nowhere.
func (s *Store) Get(key string, version int) (GetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache.Get(key); ok {
		e := cached.(*entry)
		if version == persist.Latest {
			rec := e.records[len(e.records)-1]
			return result(rec, SourceCache), nil
		}
		if rec, ok := e.find(version); ok {
			return result(rec, SourceCache), nil
		}
	}

	rec, err := s.db.Get(key, version)
	if err != nil {
		return GetResult{}, err
	}

	e := s.entryFor(key)
	e.insert(rec)
	s.cache.Add(key, e)

	return result(rec, SourceDatabase), nil
}

// Stats reports cache occupancy under the same lock as Put and Get.
func (s *Store) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.cache.Len()
	return CacheStats{
		CurrentSize: size,
		MaxSize:     s.maxSize,
		IsFull:      size >= s.maxSize,
	}
}

// entryFor returns the cached entry for key, or a fresh empty one.
// Caller must hold s.mu and Add the entry back to refresh recency.
func (s *Store) entryFor(key string) *entry {
	if cached, ok := s.cache.Peek(key); ok {
		return cached.(*entry)
	}
	return &entry{}
}

func result(rec persist.Record, src Source) GetResult {
	return GetResult{
		Value:     rec.Value,
		Version:   rec.Version,
		Timestamp: rec.Timestamp,
		Source:    src,
	}
}
