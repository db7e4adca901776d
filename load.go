package compdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Load materializes stored records for every registered type as live
// objects, marking each materialized object fresh. Records from different
// partitions that share an original id land on the same object. Call once
// at startup, before the first [Engine.Sync].
//
// A record whose key does not decode is skipped with a warning. A record
// whose value does not decode aborts that type's load: silently dropping
// it would lose the data permanently on the next save cycle. A failed type
// does not prevent the remaining types from loading; the per-type errors
// are joined.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for _, ts := range e.types {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.loadType(ts); err != nil {
			errs = append(errs, fmt.Errorf("compdb: load %q: %w", ts.name, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) loadType(ts *typeSync) error {
	return ts.part.ForEach(func(key, value []byte) error {
		orig, ok := DecodeKey(key)
		if !ok {
			slog.Warn("Skipping record with malformed key", "partition", ts.name, "key", fmt.Sprintf("%x", key))
			return nil
		}
		// Decode before touching the world so a corrupt record does not
		// leave a half-built object behind.
		v, err := ts.decode(value)
		if err != nil {
			return fmt.Errorf("record %d: %w", orig, err)
		}
		id, ok := e.loaded[orig]
		if !ok {
			id = e.w.Create()
			e.loaded[orig] = id
		}
		if err := ts.attach(id, v); err != nil {
			return fmt.Errorf("record %d: %w", orig, err)
		}
		e.w.MarkFresh(id)
		return nil
	})
}
