package compdb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/maruel/compdb/kv"
	"github.com/maruel/compdb/world"
)

// DefaultPath is the store location used when [Options].Path is empty.
const DefaultPath = "./database"

// Options configures an [Engine]. The zero value opens a Bolt store at
// [DefaultPath] with the JSON codec.
type Options struct {
	// Path is the filesystem location of the store. Ignored if Store is
	// set.
	Path string
	// Store overrides the default Bolt store, e.g. [kv.NewMemory] for
	// tests. The caller keeps ownership: Engine.Close will not close it.
	Store kv.Store
	// Codec encodes attribute-set payloads. Defaults to [JSON].
	Codec Codec
}

// Engine synchronizes attribute sets between a [world.World] and a
// [kv.Store].
//
// Register every type first, then call Load once, then Sync once per
// cycle. Engine methods serialize against each other internally; world
// mutations may happen concurrently with them.
type Engine struct {
	w        *world.World
	store    kv.Store
	codec    Codec
	ownStore bool

	mu    sync.Mutex
	types []*typeSync
	names map[string]struct{}
	// loaded maps the id a record carried in a previous run to the object
	// created for it in this run. It is what makes records of the same
	// original object, loaded from different partitions, land on a single
	// object. Kept for the process lifetime.
	loaded map[world.ObjectID]world.ObjectID
}

// typeSync holds the per-registered-type state and the type-erased world
// accessors captured at registration.
type typeSync struct {
	name string
	part kv.Partition
	// lastSeen is the world tick up to which changes have been observed.
	lastSeen uint64
	decode   func(raw []byte) (any, error)
	attach   func(id world.ObjectID, v any) error
	encode   func(id world.ObjectID) ([]byte, bool, error)
	changed  func(since uint64) []world.ObjectID
	removals func() []world.ObjectID
}

// Open creates an engine over the given world, opening the backing store
// if none is supplied.
func Open(w *world.World, opts Options) (*Engine, error) {
	store := opts.Store
	ownStore := false
	if store == nil {
		path := opts.Path
		if path == "" {
			path = DefaultPath
		}
		var err error
		if store, err = kv.OpenBolt(path); err != nil {
			return nil, fmt.Errorf("compdb: %w", err)
		}
		ownStore = true
	}
	codec := opts.Codec
	if codec == nil {
		codec = JSON
	}
	return &Engine{
		w:        w,
		store:    store,
		codec:    codec,
		ownStore: ownStore,
		names:    map[string]struct{}{},
		loaded:   map[world.ObjectID]world.ObjectID{},
	}, nil
}

// Close releases the backing store if the engine opened it.
func (e *Engine) Close() error {
	if e.ownStore {
		return e.store.Close()
	}
	return nil
}

// Register wires persistence for attribute sets of type T under the given
// partition name. The name must be unique across registered types and
// stable across runs; [PartitionName] provides a derived fallback. The
// partition is opened (creating it if absent) immediately; a failure here
// affects only this type.
func Register[T any](e *Engine, partition string) error {
	if partition == "" {
		return errors.New("compdb: empty partition name")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.names[partition]; ok {
		return fmt.Errorf("compdb: partition %q already registered", partition)
	}
	part, err := e.store.Partition(partition)
	if err != nil {
		return fmt.Errorf("compdb: open partition %q: %w", partition, err)
	}
	w, codec := e.w, e.codec
	e.names[partition] = struct{}{}
	e.types = append(e.types, &typeSync{
		name: partition,
		part: part,
		decode: func(raw []byte) (any, error) {
			var v T
			if err := codec.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
		attach: func(id world.ObjectID, v any) error {
			return world.Set(w, id, v.(T))
		},
		encode: func(id world.ObjectID) ([]byte, bool, error) {
			v, ok := world.Get[T](w, id)
			if !ok {
				return nil, false, nil
			}
			raw, err := codec.Marshal(v)
			return raw, true, err
		},
		changed:  func(since uint64) []world.ObjectID { return world.ChangedSince[T](w, since) },
		removals: func() []world.ObjectID { return world.DrainRemoved[T](w) },
	})
	return nil
}
