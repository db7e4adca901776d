package compdb

import (
	"context"
	"errors"
	"fmt"
)

// Sync runs one synchronization cycle: per registered type, delete the
// records of detached attribute sets and write changed values, then clear
// every freshness marker so the next cycle's change detection is not
// suppressed.
//
// The removal pass runs before the save pass. An attribute set can be
// detached and reattached between cycles, queuing a removal event for the
// same key the save pass is about to write; delete-then-save resolves
// that interleaving to the reattached value instead of erasing it.
//
// An error in one type's pass does not stop the other types; the per-type
// errors are joined. Writes already applied when an error occurs are not
// rolled back.
func (e *Engine) Sync(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	// The markers were observable by every save pass of this cycle,
	// including failed ones, so clear unconditionally.
	defer e.w.ClearFresh()
	var errs []error
	for _, ts := range e.types {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.removeType(ts); err != nil {
			errs = append(errs, fmt.Errorf("compdb: sync %q: %w", ts.name, err))
			continue
		}
		if err := e.saveType(ts); err != nil {
			errs = append(errs, fmt.Errorf("compdb: sync %q: %w", ts.name, err))
		}
	}
	return errors.Join(errs...)
}
