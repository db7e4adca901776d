package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// boltStore backs a Store with a single bbolt database file. Each
// partition is a top-level bucket.
type boltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates a bbolt-backed store at the given file path,
// creating parent directories as needed.
func OpenBolt(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	// Timeout so a second process gets an error instead of blocking on the
	// file lock forever.
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Partition(name string) (Partition, error) {
	if name == "" {
		return nil, errors.New("empty partition name")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %q: %w", name, err)
	}
	return &boltPartition{db: s.db, name: []byte(name)}, nil
}

func (s *boltStore) Partitions() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

// boltPartition is a lightweight handle; each operation runs in its own
// transaction.
type boltPartition struct {
	db   *bolt.DB
	name []byte
}

func (p *boltPartition) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	found := false
	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(p.name)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			out = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	return out, found, err
}

func (p *boltPartition) Put(key, value []byte) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(p.name)
		if b == nil {
			return fmt.Errorf("partition %q does not exist", p.name)
		}
		return b.Put(key, value)
	})
}

func (p *boltPartition) Delete(key []byte) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(p.name)
		if b == nil {
			return nil
		}
		return b.Delete(key)
	})
}

func (p *boltPartition) ForEach(fn func(key, value []byte) error) error {
	return p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(p.name)
		if b == nil {
			return nil
		}
		return b.ForEach(fn)
	})
}
