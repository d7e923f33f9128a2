package shelf

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// Compact rewrites data.jsonl to contain exactly one record per
// currently-live ID, dropping dead records (deleted or superseded by a
// later write to the same ID) and orphaned partial tails. The rewrite
// goes to a temp file that is fsynced and atomically renamed over
// data.jsonl, so a crash mid-compaction never leaves a torn log: readers
// either see the old file intact or the new one, never a partial write.
func (c *Collection) Compact() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("compact: %w", ErrClosed)
	}
	if c.readOnly {
		return fmt.Errorf("compact: %w", ErrReadOnly)
	}
	if err := c.drainLocked(); err != nil {
		return err
	}

	logPath := c.dataLogPath()
	src, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapIO("compact", err)
	}
	defer src.Close()

	tmpPath := logPath + ".tmp"
	dst, err := os.Create(tmpPath)
	if err != nil {
		return wrapIO("compact", err)
	}

	newIndex := map[string]indexEntry{}
	var newOrder []string

	reader := bufio.NewReaderSize(src, 64*1024)
	var srcOffset int64
	var dstOffset int64
	for {
		lineBytes, rerr := reader.ReadBytes('\n')
		if rerr != nil {
			if rerr != io.EOF {
				dst.Close()
				return wrapIO("compact", rerr)
			}
			if len(lineBytes) == 0 {
				break
			}
			// Partial final line with no trailing newline: drop it.
			break
		}
		lineLen := int64(len(lineBytes))
		content := lineBytes[:lineLen-1]

		if len(content) > 0 {
			doc, derr := decodeDocument(content)
			if derr == nil {
				if idVal, ok := doc["_id"].(string); ok && idVal != "" {
					if entry, live := c.index[idVal]; live && entry.offset == srcOffset {
						if _, err := dst.Write(lineBytes); err != nil {
							dst.Close()
							return wrapIO("compact", err)
						}
						newIndex[idVal] = indexEntry{
							offset:   dstOffset,
							length:   lineLen,
							checksum: xxh3.Hash(content),
						}
						newOrder = append(newOrder, idVal)
						dstOffset += lineLen
					}
				}
			}
		}
		srcOffset += lineLen
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		return wrapIO("compact", err)
	}
	if err := dst.Close(); err != nil {
		return wrapIO("compact", err)
	}
	if err := os.Rename(tmpPath, logPath); err != nil {
		return wrapIO("compact", err)
	}

	c.index = newIndex
	c.order = newOrder
	c.manifest.DocCount = len(c.index)
	if err := c.persistIndexLocked(); err != nil {
		return err
	}
	if err := saveManifest(c.manifestPath(), c.manifest); err != nil {
		return wrapIO("compact: write manifest", err)
	}
	c.dirty = false
	return nil
}

// persistIndexLocked rewrites index.bin from the current in-memory
// index. Must be called with c.mu held.
func (c *Collection) persistIndexLocked() error {
	return writeIndexFile(c.indexFilePath(), c.index, c.order)
}
