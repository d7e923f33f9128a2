package shelf

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ListIds drains pending writes and returns every live document ID. If
// meta/order.ids exists it is consulted first (external collaborators
// may maintain it for a stable enumeration); any live ID it omits is
// appended afterward in index order, mirroring the fallback chain the
// Python original's iter_doc_ids uses.
func (c *Collection) ListIds() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("list ids: %w", ErrClosed)
	}
	if !c.readOnly {
		if err := c.drainLocked(); err != nil {
			return nil, err
		}
	}
	return c.effectiveOrderLocked()
}

// Count drains pending writes and returns the number of live documents.
func (c *Collection) Count() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, fmt.Errorf("count: %w", ErrClosed)
	}
	if !c.readOnly {
		if err := c.drainLocked(); err != nil {
			return 0, err
		}
	}
	return len(c.index), nil
}

// effectiveOrderLocked must be called with c.mu held and after any
// pending writes have been drained.
func (c *Collection) effectiveOrderLocked() ([]string, error) {
	fromFile, err := readOrderFile(c.orderFilePath())
	if err != nil {
		return nil, err
	}
	if fromFile == nil {
		return c.liveOrderLocked(), nil
	}

	seen := map[string]bool{}
	out := make([]string, 0, len(c.index))
	for _, id := range fromFile {
		if _, ok := c.index[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range c.order {
		if _, ok := c.index[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// liveOrderLocked filters the maintained insertion-order slice down to
// currently-indexed IDs (deletions are removed lazily here rather than
// eagerly rewriting c.order on every Delete).
func (c *Collection) liveOrderLocked() []string {
	out := make([]string, 0, len(c.index))
	for _, id := range c.order {
		if _, ok := c.index[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// readOrderFile returns nil, nil if the file doesn't exist.
func readOrderFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapIO("read order file", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, wrapIO("read order file", err)
	}
	return ids, nil
}
