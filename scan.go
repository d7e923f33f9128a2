package shelf

import (
	"bufio"
	"fmt"
	"iter"
	"os"
)

// ScanOptions narrows a Scan: Predicate keeps only documents whose field
// values equal-match every entry (numeric comparison is type-tolerant,
// see valuesEqual); Projection, if non-nil, keeps only the named fields.
type ScanOptions struct {
	Projection []string
	Predicate  map[string]any
}

// Scan drains pending writes, then returns a lazy sequence over every
// live document. Dead records (deleted, or superseded by a later write to
// the same ID, so the index no longer points at that line's offset) and
// records that fail to parse are silently skipped, per
// the store's rule that scan-time corruption skips the record and
// continues rather than aborting enumeration.
//
// Scan holds the collection's lock for the setup call only; the returned
// sequence re-opens data.jsonl under the lock on every range-over-func
// call and releases the lock while the caller's loop body runs, so two
// Scan calls produce independent traversals and neither
// blocks the other once both have started (a concurrent Put between
// calls is still serialized by the same collection lock every other
// method uses).
func (c *Collection) Scan(opts ScanOptions) (iter.Seq[Document], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("scan: %w", ErrClosed)
	}
	if !c.readOnly {
		if err := c.drainLocked(); err != nil {
			return nil, err
		}
	}

	return func(yield func(Document) bool) {
		c.mu.Lock()
		locked := true
		defer func() {
			if locked {
				c.mu.Unlock()
			}
		}()

		f, err := os.Open(c.dataLogPath())
		if err != nil {
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		var offset int64
		for scanner.Scan() {
			line := scanner.Bytes()
			lineOffset := offset
			offset += int64(len(line)) + 1
			if len(line) == 0 {
				continue
			}
			doc, err := decodeDocument(line)
			if err != nil {
				continue
			}
			idVal, ok := doc["_id"].(string)
			if !ok || idVal == "" {
				continue
			}
			if entry, live := c.index[idVal]; !live || entry.offset != lineOffset {
				continue
			}
			delete(doc, "_id")

			if opts.Predicate != nil && !matchesPredicate(doc, opts.Predicate) {
				continue
			}
			if opts.Projection != nil {
				doc = projectFields(doc, opts.Projection)
			}
			locked = false
			c.mu.Unlock()
			more := yield(doc)
			c.mu.Lock()
			locked = true
			if !more {
				return
			}
		}
	}, nil
}

func matchesPredicate(doc Document, predicate map[string]any) bool {
	for field, want := range predicate {
		if !valuesEqual(doc[field], want) {
			return false
		}
	}
	return true
}

func projectFields(doc Document, fields []string) Document {
	out := make(Document, len(fields))
	for _, field := range fields {
		if v, ok := doc[field]; ok {
			out[field] = v
		}
	}
	return out
}
