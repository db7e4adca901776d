// Package world implements a minimal in-memory object runtime: uniquely
// identified objects holding typed attribute sets, with change tracking,
// removal queues, and per-object markers.
//
// # Overview
//
// A [World] owns object lifecycle. Objects are created with [World.Create]
// and hold at most one attribute set per Go type, attached with [Set] and
// detached with [Remove]. The world records a monotonically increasing
// change tick on every attach or replace, so a caller can ask "which
// objects changed since tick N" via [ChangedSince]. Detaches queue removal
// events drained with [DrainRemoved].
//
// # Markers
//
// Two per-object markers exist for the persistence engine:
//
//   - Fresh: set on objects whose attribute sets were just materialized
//     from storage, cleared in bulk at the end of a sync cycle. Suppresses
//     the immediate re-save of just-loaded values.
//   - Ephemeral: opts an object out of persistence permanently. Ephemeral
//     objects never contribute removal events.
//
// # Concurrency
//
// All methods are safe for concurrent use by multiple goroutines; each
// call locks the world for its duration.
package world

import (
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"
	"sync"
)

// ObjectID identifies a live object within a World. Ids are process-local:
// an object persisted and reloaded in a later run may receive a different
// id.
type ObjectID uint32

// Nil is the reserved invalid id. It is never assigned to a live object.
const Nil ObjectID = math.MaxUint32

// IsNil reports whether the id is the reserved invalid value.
func (id ObjectID) IsNil() bool { return id == Nil }

// markers holds the per-object flags.
type markers struct {
	fresh     bool
	ephemeral bool
}

// store holds every attribute set of a single Go type, keyed by object id.
type store struct {
	values   map[ObjectID]any
	modified map[ObjectID]uint64
	removed  []ObjectID
}

func newStore() *store {
	return &store{
		values:   map[ObjectID]any{},
		modified: map[ObjectID]uint64{},
	}
}

// World is an in-memory collection of objects and their attribute sets.
type World struct {
	mu      sync.RWMutex
	tick    uint64
	nextID  ObjectID
	objects map[ObjectID]*markers
	stores  map[reflect.Type]*store
}

// New creates an empty world.
func New() *World {
	return &World{
		objects: map[ObjectID]*markers{},
		stores:  map[reflect.Type]*store{},
	}
}

// Create allocates a new live object and returns its id.
func (w *World) Create() ObjectID {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		id := w.nextID
		w.nextID++
		if id == Nil {
			continue
		}
		if _, ok := w.objects[id]; ok {
			continue
		}
		w.objects[id] = &markers{}
		return id
	}
}

// Destroy removes the object and detaches all its attribute sets. Each
// detach queues a removal event unless the object is ephemeral. Destroying
// a dead object is a no-op.
func (w *World) Destroy(id ObjectID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.objects[id]
	if !ok {
		return
	}
	for _, s := range w.stores {
		if _, ok := s.values[id]; !ok {
			continue
		}
		delete(s.values, id)
		delete(s.modified, id)
		if !m.ephemeral {
			s.removed = append(s.removed, id)
		}
	}
	delete(w.objects, id)
}

// Alive reports whether the object exists.
func (w *World) Alive(id ObjectID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.objects[id]
	return ok
}

// Len returns the number of live objects.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.objects)
}

// IDs returns the ids of all live objects, sorted.
func (w *World) IDs() []ObjectID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]ObjectID, 0, len(w.objects))
	for id := range w.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Tick returns the current change tick. The tick increases on every
// attribute set attach or replace.
func (w *World) Tick() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// MarkFresh flags the object as just materialized from storage. No-op for
// dead objects.
func (w *World) MarkFresh(id ObjectID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if m, ok := w.objects[id]; ok {
		m.fresh = true
	}
}

// Fresh reports whether the object carries the freshness marker.
func (w *World) Fresh(id ObjectID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.objects[id]
	return ok && m.fresh
}

// ClearFresh removes the freshness marker from every object.
func (w *World) ClearFresh() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range w.objects {
		m.fresh = false
	}
}

// SetEphemeral opts the object in or out of persistence. No-op for dead
// objects.
func (w *World) SetEphemeral(id ObjectID, on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if m, ok := w.objects[id]; ok {
		m.ephemeral = on
	}
}

// Ephemeral reports whether the object is opted out of persistence.
func (w *World) Ephemeral(id ObjectID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.objects[id]
	return ok && m.ephemeral
}

// storeLocked returns the store for t, creating it if needed. Caller must
// hold the write lock.
func (w *World) storeLocked(t reflect.Type) *store {
	s, ok := w.stores[t]
	if !ok {
		s = newStore()
		w.stores[t] = s
	}
	return s
}

// Set attaches or replaces the attribute set of type T on an object and
// records a change tick. Returns an error if the object is not alive.
func Set[T any](w *World, id ObjectID, v T) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.objects[id]; !ok {
		return fmt.Errorf("world: object %d not found", id)
	}
	s := w.storeLocked(reflect.TypeFor[T]())
	w.tick++
	s.values[id] = v
	s.modified[id] = w.tick
	return nil
}

// Get returns the attribute set of type T on the object, if any.
func Get[T any](w *World, id ObjectID) (T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.stores[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := s.values[id]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Has reports whether the object holds an attribute set of type T.
func Has[T any](w *World, id ObjectID) bool {
	_, ok := Get[T](w, id)
	return ok
}

// Remove detaches the attribute set of type T from the object and queues a
// removal event unless the object is ephemeral. Returns false if the
// object did not hold a T.
func Remove[T any](w *World, id ObjectID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.objects[id]
	if !ok {
		return false
	}
	s, ok := w.stores[reflect.TypeFor[T]()]
	if !ok {
		return false
	}
	if _, ok := s.values[id]; !ok {
		return false
	}
	delete(s.values, id)
	delete(s.modified, id)
	if !m.ephemeral {
		s.removed = append(s.removed, id)
	}
	return true
}

// ChangedSince returns the ids, sorted, of objects whose attribute set of
// type T was attached or replaced after the given tick.
func ChangedSince[T any](w *World, since uint64) []ObjectID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.stores[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	var ids []ObjectID
	for id, tick := range s.modified {
		if tick > since {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// DrainRemoved returns and clears the queued removal events for type T.
// Each detach produces exactly one event; draining twice in a row returns
// nil the second time.
func DrainRemoved[T any](w *World) []ObjectID {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.stores[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	removed := s.removed
	s.removed = nil
	return removed
}

// All returns an iterator over every object holding an attribute set of
// type T, in unspecified order.
func All[T any](w *World) iter.Seq2[ObjectID, T] {
	return func(yield func(ObjectID, T) bool) {
		w.mu.RLock()
		defer w.mu.RUnlock()
		s, ok := w.stores[reflect.TypeFor[T]()]
		if !ok {
			return
		}
		for id, v := range s.values {
			if !yield(id, v.(T)) {
				return
			}
		}
	}
}
