package kv

import (
	"errors"
	"slices"
	"sync"
)

// memStore is a map-backed Store for tests and ephemeral worlds.
type memStore struct {
	mu    sync.Mutex
	parts map[string]*memPartition
}

// NewMemory creates an empty in-memory store. Data does not survive Close.
func NewMemory() Store {
	return &memStore{parts: map[string]*memPartition{}}
}

func (s *memStore) Partition(name string) (Partition, error) {
	if name == "" {
		return nil, errors.New("empty partition name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parts[name]
	if !ok {
		p = &memPartition{data: map[string][]byte{}}
		s.parts[name] = p
	}
	return p, nil
}

func (s *memStore) Partitions() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.parts))
	for name := range s.parts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *memStore) Close() error {
	return nil
}

type memPartition struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (p *memPartition) Get(key []byte) ([]byte, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (p *memPartition) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (p *memPartition) Delete(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, string(key))
	return nil
}

func (p *memPartition) ForEach(fn func(key, value []byte) error) error {
	// Snapshot the keys so the lock is not held across callbacks.
	p.mu.RLock()
	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		keys = append(keys, k)
	}
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = p.data[k]
	}
	p.mu.RUnlock()
	for i, k := range keys {
		if err := fn([]byte(k), values[i]); err != nil {
			return err
		}
	}
	return nil
}
