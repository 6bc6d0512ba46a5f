package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pweiskircher/buganize/internal/contracts"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketResponses = "responses"
	BucketUpdates   = "updates"

	expiryHeaderBytes = 8
)

var ErrClosed = errors.New("cache is closed")

// Store is a bbolt file holding TTL-bounded values in named buckets. It is
// safe for concurrent use; Close waits for in-flight operations.
type Store struct {
	mu  sync.RWMutex
	db  *bolt.DB
	now func() time.Time
}

// DefaultPath is cache.db under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user cache directory: %w", err)
	}
	return filepath.Join(dir, contracts.DefaultConfigDir, contracts.DefaultCacheFile), nil
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketResponses, BucketUpdates} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// WithClock replaces the clock used for expiry checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// open returns the live database with the read lock held. The caller must
// call release when done with db.
func (s *Store) open() (db *bolt.DB, release func(), err error) {
	if s == nil {
		return nil, nil, ErrClosed
	}
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return nil, nil, ErrClosed
	}
	return s.db, s.mu.RUnlock, nil
}

func (s *Store) Bucket(name string) *Bucket {
	return &Bucket{store: s, name: []byte(name)}
}

// Prune deletes expired entries from every bucket and reports how many
// were removed.
func (s *Store) Prune() (int, error) {
	db, release, err := s.open()
	if err != nil {
		return 0, err
	}
	defer release()

	now := s.now()
	removed := 0
	err = db.Update(func(tx *bolt.Tx) error {
		return tx.ForEach(func(_ []byte, bucket *bolt.Bucket) error {
			expired := make([][]byte, 0)
			err := bucket.ForEach(func(key, value []byte) error {
				if _, live := decodeRecord(value, now); !live {
					expired = append(expired, append([]byte(nil), key...))
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, key := range expired {
				if err := bucket.Delete(key); err != nil {
					return err
				}
			}
			removed += len(expired)
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return removed, nil
}

// Bucket is a view of one named bucket.
type Bucket struct {
	store *Store
	name  []byte
}

// Get returns the value stored under key. Expired values are reported as
// missing.
func (b *Bucket) Get(key string) ([]byte, bool, error) {
	db, release, err := b.store.open()
	if err != nil {
		return nil, false, err
	}
	defer release()

	var value []byte
	found := false
	now := b.store.now()
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.name)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		payload, live := decodeRecord(raw, now)
		if !live {
			return nil
		}
		value = append([]byte(nil), payload...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}
	return value, found, nil
}

// Put stores value under key. A non-positive ttl never expires.
func (b *Bucket) Put(key string, value []byte, ttl time.Duration) error {
	db, release, err := b.store.open()
	if err != nil {
		return err
	}
	defer release()

	var expiresAt int64
	if ttl > 0 {
		expiresAt = b.store.now().Add(ttl).UnixNano()
	}
	record := make([]byte, expiryHeaderBytes+len(value))
	binary.BigEndian.PutUint64(record, uint64(expiresAt))
	copy(record[expiryHeaderBytes:], value)

	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(b.name)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), record)
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}
	return nil
}

func (b *Bucket) Delete(key string) error {
	db, release, err := b.store.open()
	if err != nil {
		return err
	}
	defer release()

	err = db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.name)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}
	return nil
}

func decodeRecord(raw []byte, now time.Time) ([]byte, bool) {
	if len(raw) < expiryHeaderBytes {
		return nil, false
	}
	expiresAt := int64(binary.BigEndian.Uint64(raw[:expiryHeaderBytes]))
	if expiresAt != 0 && now.UnixNano() >= expiresAt {
		return nil, false
	}
	return raw[expiryHeaderBytes:], true
}
