package compdb

import "fmt"

// saveType writes every attribute set of one type changed since the
// previous cycle, skipping fresh and ephemeral objects. Records are keyed
// by the object's current id. On error the observation point is not
// advanced, so unsaved changes remain candidates for the next cycle.
func (e *Engine) saveType(ts *typeSync) error {
	now := e.w.Tick()
	for _, id := range ts.changed(ts.lastSeen) {
		if e.w.Fresh(id) || e.w.Ephemeral(id) {
			continue
		}
		raw, ok, err := ts.encode(id)
		if err != nil {
			return fmt.Errorf("encode object %d: %w", id, err)
		}
		if !ok {
			// Detached since the change was recorded; its removal event
			// deletes the record, this cycle or the next.
			continue
		}
		if err := ts.part.Put(EncodeKey(id), raw); err != nil {
			return fmt.Errorf("save object %d: %w", id, err)
		}
	}
	ts.lastSeen = now
	return nil
}
