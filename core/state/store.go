package state

import (
	"encoding/json"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"swapmesh/core/canon"
)

var (
	bucketName = []byte("snapshot")
	stateKey   = []byte("state")
)

// Store is the single-writer guard around the Snapshot: every mutation
// holds the lock for the duration of one operation, and the resulting
// snapshot is persisted canonically before the lock is released, so
// snapshots survive migration between storage backends byte-for-byte.
type Store struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	db       *bolt.DB
}

// Open loads (or initializes) the snapshot at path, a bbolt database file.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	store := &Store{db: db}
	if err := store.load(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// OpenMemory returns a Store backed by a fresh in-memory snapshot with no
// durable backing file, for tests and ephemeral callers.
func OpenMemory() *Store {
	return &Store{snapshot: NewSnapshot()}
}

func (s *Store) load() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		raw := bucket.Get(stateKey)
		if len(raw) == 0 {
			s.snapshot = NewSnapshot()
			return nil
		}
		var snap Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("state: decode snapshot: %w", err)
		}
		s.snapshot = &snap
		return nil
	})
}

// Close flushes and closes the backing database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Update runs fn against the live snapshot under the writer lock, then
// persists the result. fn observes and mutates the single shared snapshot
// directly; on error, the in-memory snapshot is left mutated but never
// persisted to disk (callers must not partially apply a failed mutation —
// all engine mutation functions validate before touching the snapshot).
func (s *Store) Update(fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.snapshot); err != nil {
		return err
	}
	return s.persistLocked()
}

// View runs fn against the live snapshot under a read lock. Callers must
// not retain references into the snapshot beyond fn's lifetime.
func (s *Store) View(fn func(*Snapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.snapshot)
}

func (s *Store) persistLocked() error {
	if s.db == nil {
		return nil
	}
	data, err := canon.Marshal(s.snapshot)
	if err != nil {
		return fmt.Errorf("state: canonicalize snapshot: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return bucket.Put(stateKey, data)
	})
}

// SnapshotJSON returns the canonical JSON encoding of the current snapshot,
// primarily for diagnostics and determinism tests.
func (s *Store) SnapshotJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return canon.Marshal(s.snapshot)
}
