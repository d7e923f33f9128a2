// Optional integrity checksum cache.
//
// The teacher's bloom filter accelerates existence checks over a
// disk-resident unsorted region; this store's offset index is a fully
// resident in-memory map, so that role doesn't apply (see DESIGN.md).
// What does carry over is the broader concern of catching corruption
// that still parses as valid JSON but no longer matches what was
// written. Verify recomputes each live record's xxh3 checksum and
// compares it against the one captured when the index entry was built.
package shelf

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Verify recomputes the checksum of every live record and compares it
// against the cached value captured at put/drain or rebuild time. It
// returns the IDs whose on-disk bytes no longer match, without aborting
// on the first mismatch — matching the rule that scan-time corruption
// skips the record and continues.
//
// An index entry loaded straight from an existing index.bin (rather than
// rebuilt from the log) has no cached checksum yet, since that on-disk
// format carries no checksum column; Verify treats a zero cached
// checksum as "not yet captured" and simply seeds the cache from the
// current bytes instead of reporting a mismatch.
func (c *Collection) Verify() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("verify: %w", ErrClosed)
	}
	if !c.readOnly {
		if err := c.drainLocked(); err != nil {
			return nil, err
		}
	}

	var corrupt []string
	for id, entry := range c.index {
		raw, err := c.readRecordLocked(entry)
		if err != nil {
			corrupt = append(corrupt, id)
			continue
		}
		sum := xxh3.Hash(raw)
		if entry.checksum == 0 {
			entry.checksum = sum
			c.index[id] = entry
			continue
		}
		if sum != entry.checksum {
			corrupt = append(corrupt, id)
		}
	}
	return corrupt, nil
}
