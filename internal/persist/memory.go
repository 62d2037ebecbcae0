package persist

import (
	"fmt"
	"sync"
	"time"

	"distkv/internal/value"
)

// MemoryStore is a map-backed Store used in tests and as a stand-in
// where durability is not needed. It honors the same versioning
// contract as BoltStore.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]Record)}
}

func (s *MemoryStore) Put(key string, val value.Value) (PutResult, error) {
	if key == "" {
		return PutResult{}, fmt.Errorf("persist: empty key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	versions := s.data[key]

	res := PutResult{
		Key:        key,
		NewVersion: len(versions) + 1,
		Timestamp:  now,
	}
	if len(versions) == 0 {
		res.Operation = OpCreate
	} else {
		res.Operation = OpUpdate
		res.PreviousVersion = len(versions)
	}

	s.data[key] = append(versions, Record{
		Value:     val,
		Version:   res.NewVersion,
		Timestamp: now,
	})
	return res, nil
}

func (s *MemoryStore) Get(key string, version int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.data[key]
	if !ok || len(versions) == 0 {
		return Record{}, ErrNotFound
	}

	if version == Latest {
		return versions[len(versions)-1], nil
	}
	if version < 1 || version > len(versions) {
		return Record{}, ErrNotFound
	}
	return versions[version-1], nil
}

func (s *MemoryStore) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{TotalKeys: len(s.data)}
	for _, versions := range s.data {
		st.TotalVersions += len(versions)
		for _, rec := range versions {
			if raw, err := rec.Value.MarshalJSON(); err == nil {
				st.StorageSizeBytes += int64(len(raw))
			}
		}
	}
	return st, nil
}
