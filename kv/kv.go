// Package kv defines the storage boundary used by the persistence engine:
// a store divided into independently-addressed named partitions of raw
// byte key-value pairs.
//
// Two implementations are provided: [OpenBolt] for durable on-disk storage
// backed by bbolt, and [NewMemory] for tests and ephemeral use.
package kv

// Store is an open key-value store divided into named partitions.
//
// A Store is safe for concurrent use across different partitions;
// per-partition concurrency is delegated to the implementation.
type Store interface {
	// Partition opens the named partition, creating it if absent.
	Partition(name string) (Partition, error)
	// Partitions returns the names of all existing partitions, sorted.
	Partitions() ([]string, error)
	// Close releases the store. Partition handles must not be used after
	// Close returns.
	Close() error
}

// Partition is an independently-addressed region of a Store holding raw
// byte key-value pairs.
type Partition interface {
	// Get returns the value stored under key, or false if absent.
	Get(key []byte) ([]byte, bool, error)
	// Put stores value under key, replacing any existing value.
	Put(key, value []byte) error
	// Delete removes the record under key. Deleting an absent key is not
	// an error.
	Delete(key []byte) error
	// ForEach calls fn for every record, in unspecified order, stopping at
	// the first error. The key and value slices are only valid for the
	// duration of the call. fn must not write to the partition.
	ForEach(fn func(key, value []byte) error) error
}
