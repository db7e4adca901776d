// Package compdb persists the attribute sets of an in-memory object
// [world.World] to a partitioned key-value store, so that object state
// survives process restarts.
//
// # Overview
//
// Each registered attribute-set type gets its own storage partition.
// Records are keyed by the object's id at save time, encoded as a
// fixed-width big-endian key. [Engine.Load] runs once at startup and
// materializes stored records as live objects, reconciling records from
// different partitions that belonged to the same original object onto a
// single new object. [Engine.Sync] runs once per cycle: it writes values
// changed since the previous cycle, deletes records for detached attribute
// sets, and finally clears the freshness markers that suppress re-saving
// just-loaded values.
//
// # Usage
//
//	w := world.New()
//	e, err := compdb.Open(w, compdb.Options{Path: "./database"})
//	if err != nil { ... }
//	defer e.Close()
//	if err := compdb.Register[Player](e, "player"); err != nil { ... }
//	if err := compdb.Register[Score](e, "score"); err != nil { ... }
//	if err := e.Load(ctx); err != nil { ... }
//	for { // once per cycle
//		if err := e.Sync(ctx); err != nil { ... }
//	}
//
// # Feedback loop avoidance
//
// Attaching a loaded value bumps the world's change tick, so without
// countermeasures the first post-load cycle would observe every loaded
// object as "changed" and write it back to the very record it was just
// read from. Load marks materialized objects fresh; Sync skips fresh
// objects and clears the marker at the end of the cycle, so only values
// changed after load are written.
package compdb
