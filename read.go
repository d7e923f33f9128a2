package shelf

import (
	"fmt"
	"os"
)

// Get returns the document stored under id, or ErrNotFound. A pending
// (not yet drained) write for id is returned directly, last-writer-wins
// within the current batch.
func (c *Collection) Get(id string) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("get %q: %w", id, ErrClosed)
	}
	return c.getNoLock(id)
}

// Exists reports whether id is currently live, either pending or
// indexed. It never errors; a closed collection simply reports false.
func (c *Collection) Exists(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if _, ok := c.pendingIndex[id]; ok {
		return true
	}
	_, ok := c.index[id]
	return ok
}

// readRecordLocked reads the raw JSON bytes (newline stripped) for one
// index entry. Must be called with c.mu held.
func (c *Collection) readRecordLocked(entry indexEntry) ([]byte, error) {
	f, err := os.Open(c.dataLogPath())
	if err != nil {
		return nil, wrapIO("read record", err)
	}
	defer f.Close()

	buf := make([]byte, entry.length)
	if _, err := f.ReadAt(buf, entry.offset); err != nil {
		return nil, wrapIO("read record", err)
	}
	if n := len(buf); n > 0 && buf[n-1] == '\n' {
		buf = buf[:n-1]
	}
	return buf, nil
}
