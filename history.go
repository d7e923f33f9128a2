// Optional document version history.
//
// When a collection is opened with History(true), overwriting a
// document that has already been drained appends a compressed snapshot
// of the prior version to a sibling meta/history.jsonl before the new
// value is drained. A value replaced by a later Put while both are still
// in the same pending batch is not recorded. This is
// strictly additive: it never touches data.jsonl or index.bin, so every
// invariant about those two files holds whether or not history is
// enabled. Collection.History(id) replays the snapshots plus the
// current value, oldest first.
package shelf

import (
	"bufio"
	"encoding/ascii85"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoder and zstdDecoder are allocated once at init, the same way
// compress.go amortizes construction cost across every call instead of
// building a fresh encoder/decoder per snapshot.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// HistoryVersion is one recorded state of a document.
type HistoryVersion struct {
	Data      Document
	Timestamp time.Time
}

// historyLine is the on-disk shape of one meta/history.jsonl record.
type historyLine struct {
	ID   string `json:"_id"`
	TS   string `json:"_ts"`
	Blob string `json:"_h"`
}

// appendHistoryLocked snapshots the document currently stored at entry
// (about to be superseded) into meta/history.jsonl. Must be called with
// c.mu held, before the new value is written to data.jsonl.
func (c *Collection) appendHistoryLocked(id string, entry indexEntry) error {
	raw, err := c.readRecordLocked(entry)
	if err != nil {
		return err
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return fmt.Errorf("history %q: %w: %w", id, ErrCorruption, err)
	}
	delete(doc, "_id")

	plain, err := marshalValue(doc)
	if err != nil {
		return fmt.Errorf("history %q: %w", id, err)
	}
	compressed := zstdEncoder.EncodeAll(plain, nil)

	armored := make([]byte, ascii85.MaxEncodedLen(len(compressed)))
	n := ascii85.Encode(armored, compressed)

	line := historyLine{ID: id, TS: strconv.FormatInt(time.Now().UTC().UnixNano(), 10), Blob: string(armored[:n])}
	data, err := marshalValue(line)
	if err != nil {
		return fmt.Errorf("history %q: %w", id, err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(c.historyFilePath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return wrapIO("history", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return wrapIO("history", err)
	}
	return nil
}

// History replays every recorded version of id plus its current value,
// oldest first. If history was never enabled for id, the result is just
// the current value (or empty, if id doesn't currently exist and never
// had a recorded snapshot).
func (c *Collection) History(id string) ([]HistoryVersion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("history %q: %w", id, ErrClosed)
	}

	var versions []HistoryVersion

	f, err := os.Open(c.historyFilePath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, wrapIO("history", err)
		}
	} else {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var rec historyLine
			if err := decodeGeneric(line, &rec); err != nil {
				continue
			}
			if rec.ID != id {
				continue
			}
			version, err := decodeHistoryLine(rec)
			if err != nil {
				continue
			}
			versions = append(versions, version)
		}
	}

	if current, err := c.getNoLock(id); err == nil {
		versions = append(versions, HistoryVersion{Data: current, Timestamp: time.Now().UTC()})
	}
	return versions, nil
}

func decodeHistoryLine(rec historyLine) (HistoryVersion, error) {
	compressed := make([]byte, len(rec.Blob))
	n, _, err := ascii85.Decode(compressed, []byte(rec.Blob), true)
	if err != nil {
		return HistoryVersion{}, err
	}
	plain, err := zstdDecoder.DecodeAll(compressed[:n], nil)
	if err != nil {
		return HistoryVersion{}, err
	}
	doc, err := decodeDocument(plain)
	if err != nil {
		return HistoryVersion{}, err
	}
	nanos, _ := strconv.ParseInt(rec.TS, 10, 64)
	return HistoryVersion{Data: doc, Timestamp: time.Unix(0, nanos).UTC()}, nil
}

// getNoLock is Get's body without locking, for callers (History) that
// already hold c.mu.
func (c *Collection) getNoLock(id string) (Document, error) {
	if idx, ok := c.pendingIndex[id]; ok {
		return cloneDoc(c.pending[idx].doc), nil
	}
	entry, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	data, err := c.readRecordLocked(entry)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", id, err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w: %w", id, ErrCorruption, err)
	}
	delete(doc, "_id")
	return doc, nil
}
