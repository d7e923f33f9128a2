package shelf

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// Put queues id/doc for the next drain, batched per BatchSize. Within a
// batch, the last Put for a given id wins; Put never blocks on disk I/O
// unless the batch is full.
func (c *Collection) Put(id string, doc Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("put %q: %w", id, ErrClosed)
	}
	if c.readOnly {
		return fmt.Errorf("put %q: %w", id, ErrReadOnly)
	}
	if err := ValidateID(id); err != nil {
		return fmt.Errorf("put: %w", err)
	}

	if c.strict {
		fp, err := Fingerprint(doc)
		if err != nil {
			return fmt.Errorf("put %q: %w", id, err)
		}
		if c.manifest.SchemaID == "" {
			c.manifest.SchemaID = fp
			c.manifest.SchemaCount = 1
		} else if c.manifest.SchemaID != fp {
			return fmt.Errorf("put %q: %w", id, ErrSchemaMismatch)
		}
	}

	if idx, ok := c.pendingIndex[id]; ok {
		c.pending[idx].doc = doc
	} else {
		c.pendingIndex[id] = len(c.pending)
		c.pending = append(c.pending, pendingWrite{id: id, doc: doc})
	}

	if len(c.pending) >= c.batchSize {
		return c.drainLocked()
	}
	return nil
}

// drainLocked appends every pending write to data.jsonl, updates the
// in-memory index, and fsyncs before clearing the batch. Must be called
// with c.mu held.
func (c *Collection) drainLocked() error {
	if len(c.pending) == 0 {
		return nil
	}

	f, err := os.OpenFile(c.dataLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return wrapIO("drain", err)
	}
	defer f.Close()

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return wrapIO("drain", err)
	}

	for _, pw := range c.pending {
		if c.withHist {
			if old, ok := c.index[pw.id]; ok {
				if err := c.appendHistoryLocked(pw.id, old); err != nil {
					return err
				}
			}
		}

		rec := make(Document, len(pw.doc)+1)
		for k, v := range pw.doc {
			rec[k] = v
		}
		rec["_id"] = pw.id

		data, err := marshalValue(rec)
		if err != nil {
			return fmt.Errorf("drain %q: %w", pw.id, err)
		}
		data = append(data, '\n')

		n, err := f.Write(data)
		if err != nil {
			return wrapIO("drain", err)
		}

		_, wasIndexed := c.index[pw.id]
		c.index[pw.id] = indexEntry{
			offset:   offset,
			length:   int64(n),
			checksum: xxh3.Hash(data[:n-1]),
		}
		if !wasIndexed {
			c.order = append(c.order, pw.id)
		}
		offset += int64(n)
	}

	if err := f.Sync(); err != nil {
		return wrapIO("drain", err)
	}

	c.pending = c.pending[:0]
	c.pendingIndex = map[string]int{}
	c.dirty = true
	c.manifest.DocCount = len(c.index)
	return nil
}
