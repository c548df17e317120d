// Package snapshot persists the last shelf the server loaded so a restart can
// render something before the first ledger round trip finishes.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketShelves = []byte("shelves")

// Store implements a JSON key/value store on top of BoltDB.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects mem

	// Memory-only mode keeps values here instead of on disk.
	mem map[string][]byte
}

// Open opens (or creates) the snapshot database at path. An empty path gives
// a memory-only store.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{mem: make(map[string][]byte)}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketShelves)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// KeyFor derives the snapshot key for a contract address.
func KeyFor(contract string) string {
	normalized := strings.TrimSpace(strings.ToLower(contract))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores v as JSON under key.
func (s *Store) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if s.db == nil {
		s.mu.Lock()
		s.mem[key] = data
		s.mu.Unlock()
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketShelves).Put([]byte(key), data)
	})
}

// Get decodes the value stored under key into dest. It reports false when
// nothing is stored.
func (s *Store) Get(key string, dest any) (bool, error) {
	var data []byte

	if s.db == nil {
		s.mu.RLock()
		data = s.mem[key]
		s.mu.RUnlock()
	} else {
		err := s.db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket(bucketShelves).Get([]byte(key)); v != nil {
				data = make([]byte, len(v))
				copy(data, v)
			}
			return nil
		})
		if err != nil {
			return false, err
		}
	}

	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return true, nil
}
