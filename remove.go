package compdb

import "fmt"

// removeType deletes the record of every attribute set of one type
// detached since the previous cycle. Deletes are idempotent: a record that
// was never saved is not an error.
func (e *Engine) removeType(ts *typeSync) error {
	for _, id := range ts.removals() {
		if err := ts.part.Delete(EncodeKey(id)); err != nil {
			return fmt.Errorf("delete object %d: %w", id, err)
		}
	}
	return nil
}
