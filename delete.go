package shelf

import "fmt"

// Delete removes id from the collection. The dead record, if any, stays
// in data.jsonl until the next Compact; Delete only removes it from the
// in-memory index (and from the pending batch if it was never drained).
func (c *Collection) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("delete %q: %w", id, ErrClosed)
	}
	if c.readOnly {
		return fmt.Errorf("delete %q: %w", id, ErrReadOnly)
	}

	found := false
	if idx, ok := c.pendingIndex[id]; ok {
		c.removePendingLocked(idx)
		found = true
	}
	if _, ok := c.index[id]; ok {
		delete(c.index, id)
		c.dirty = true
		found = true
	}
	if !found {
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	c.manifest.DocCount = len(c.index)
	return nil
}

// removePendingLocked drops the pending write at idx, preserving the
// order of the remaining entries and keeping pendingIndex consistent.
// Must be called with c.mu held.
func (c *Collection) removePendingLocked(idx int) {
	removedID := c.pending[idx].id
	c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
	delete(c.pendingIndex, removedID)
	for id, pos := range c.pendingIndex {
		if pos > idx {
			c.pendingIndex[id] = pos - 1
		}
	}
}
