package persist

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/boltdb/bolt"

	"distkv/internal/value"
)

var (
	keysBucket     = []byte("keys")
	versionsBucket = []byte("versions")
)

// BoltStore persists records in a Bolt database. Layout: the keys
// bucket maps key -> metadata (created/updated timestamps); the
// versions bucket holds one nested bucket per key mapping the 8-byte
// big-endian version number to the stored record.
type BoltStore struct {
	db   *bolt.DB
	path string
}

type keyMeta struct {
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

type storedRecord struct {
	Value     value.Value `json:"value"`
	Timestamp int64       `json:"timestamp"`
}

// OpenBolt opens (or creates) the database at path and ensures the
// bucket layout exists.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(keysBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(versionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: init buckets: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Put appends the next version of key inside a single write transaction.
func (s *BoltStore) Put(key string, val value.Value) (PutResult, error) {
	if key == "" {
		return PutResult{}, fmt.Errorf("persist: empty key")
	}

	now := time.Now().UnixMilli()
	res := PutResult{Key: key, Timestamp: now}

	err := s.db.Update(func(tx *bolt.Tx) error {
		kb, err := tx.Bucket(versionsBucket).CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}

		prev := 0
		if k, _ := kb.Cursor().Last(); k != nil {
			prev = int(binary.BigEndian.Uint64(k))
		}

		res.NewVersion = prev + 1
		res.PreviousVersion = prev
		if prev == 0 {
			res.Operation = OpCreate
		} else {
			res.Operation = OpUpdate
		}

		data, err := json.Marshal(storedRecord{Value: val, Timestamp: now})
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if err := kb.Put(itob(res.NewVersion), data); err != nil {
			return err
		}

		meta := keyMeta{CreatedAt: now, UpdatedAt: now}
		mb := tx.Bucket(keysBucket)
		if raw := mb.Get([]byte(key)); raw != nil {
			var existing keyMeta
			if err := json.Unmarshal(raw, &existing); err == nil {
				meta.CreatedAt = existing.CreatedAt
			}
		}
		rawMeta, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return mb.Put([]byte(key), rawMeta)
	})
	if err != nil {
		return PutResult{}, fmt.Errorf("persist: put %q: %w", key, err)
	}
	return res, nil
}

// Get reads one version of key, or the highest one for Latest.
func (s *BoltStore) Get(key string, version int) (Record, error) {
	var rec Record

	err := s.db.View(func(tx *bolt.Tx) error {
		kb := tx.Bucket(versionsBucket).Bucket([]byte(key))
		if kb == nil {
			return ErrNotFound
		}

		var k, v []byte
		if version == Latest {
			k, v = kb.Cursor().Last()
		} else {
			k = itob(version)
			v = kb.Get(k)
		}
		if v == nil {
			return ErrNotFound
		}

		var stored storedRecord
		if err := json.Unmarshal(v, &stored); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		rec = Record{
			Value:     stored.Value,
			Version:   int(binary.BigEndian.Uint64(k)),
			Timestamp: stored.Timestamp,
		}
		return nil
	})
	if err == ErrNotFound {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("persist: get %q v%d: %w", key, version, err)
	}
	return rec, nil
}

// Stats counts distinct keys, total versions and the database file size.
func (s *BoltStore) Stats() (Stats, error) {
	var st Stats

	err := s.db.View(func(tx *bolt.Tx) error {
		st.TotalKeys = tx.Bucket(keysBucket).Stats().KeyN

		return tx.Bucket(versionsBucket).ForEach(func(k, v []byte) error {
			if kb := tx.Bucket(versionsBucket).Bucket(k); kb != nil {
				st.TotalVersions += kb.Stats().KeyN
			}
			return nil
		})
	})
	if err != nil {
		return Stats{}, fmt.Errorf("persist: stats: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		st.StorageSizeBytes = info.Size()
	}
	return st, nil
}

// itob encodes a version number as a sortable 8-byte big-endian key.
func itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
