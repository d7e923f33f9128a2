package shelf

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// populateIndex builds a collection's in-memory offset index at Open
// time: from index.bin if present, else rebuilt from data.jsonl, else
// migrated from legacy per-document files under docs/. The rebuild and
// migrate paths persist a fresh index.bin afterward (read-write mode only)
// so the next open is the cheap index.bin path.
func populateIndex(root, name, docsDir string, readOnly bool) (map[string]indexEntry, []string, error) {
	idxPath := indexFilePath(root, name)
	logPath := dataLogPath(root, name)

	if _, err := os.Stat(idxPath); err == nil {
		return loadIndexFile(idxPath)
	}

	if _, err := os.Stat(logPath); err == nil {
		index, order, err := rebuildIndexFromLog(logPath)
		if err != nil {
			return nil, nil, err
		}
		if !readOnly {
			if err := writeIndexFile(idxPath, index, order); err != nil {
				return nil, nil, err
			}
		}
		return index, order, nil
	}

	entries, err := os.ReadDir(docsDir)
	if err != nil || len(entries) == 0 {
		return map[string]indexEntry{}, nil, nil
	}
	if readOnly {
		// No write access to build data.jsonl from the legacy files; the
		// collection opens empty rather than silently migrating under a
		// caller that asked for read-only semantics.
		return map[string]indexEntry{}, nil, nil
	}
	index, order, err := migrateLegacyDocs(docsDir, logPath, entries)
	if err != nil {
		return nil, nil, err
	}
	if err := writeIndexFile(idxPath, index, order); err != nil {
		return nil, nil, err
	}
	return index, order, nil
}

// loadIndexFile reads index.bin: one "id\toffset\tlength" line per live
// document, in the order the index was last persisted. The on-disk
// format carries no checksum column (see checksum.go); entries loaded
// this way start with a zero checksum, which Verify treats as "not yet
// cached" rather than "corrupt".
func loadIndexFile(path string) (map[string]indexEntry, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, wrapIO("load index", err)
	}
	defer f.Close()

	index := map[string]indexEntry{}
	var order []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			continue
		}
		offset, err1 := strconv.ParseInt(parts[1], 10, 64)
		length, err2 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		id := parts[0]
		if _, seen := index[id]; !seen {
			order = append(order, id)
		}
		index[id] = indexEntry{offset: offset, length: length}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, wrapIO("load index", err)
	}
	return index, order, nil
}

// writeIndexFile persists the index atomically: write to a temp file,
// fsync, rename over index.bin. Format is exactly "<id>\t<offset>\t<length>"
// per line, matching the external on-disk interface; the checksum cache
// is in-memory only and never written here.
func writeIndexFile(path string, index map[string]indexEntry, order []string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return wrapIO("write index", err)
	}
	w := bufio.NewWriter(f)
	for _, id := range order {
		entry, ok := index[id]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", id, entry.offset, entry.length)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return wrapIO("write index", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return wrapIO("write index", err)
	}
	if err := f.Close(); err != nil {
		return wrapIO("write index", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return wrapIO("write index", err)
	}
	return nil
}

// rebuildIndexFromLog replays data.jsonl from offset zero, tracking the
// byte offset before each line is read. It halts at the first line that
// fails to parse as a JSON object with a non-empty "_id" field: that line
// and everything after it is treated as a partial, crash-interrupted
// write and is simply absent from the rebuilt index (a later compact
// drops the tail bytes from the log entirely).
func rebuildIndexFromLog(path string) (map[string]indexEntry, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, wrapIO("rebuild index", err)
	}
	defer f.Close()

	index := map[string]indexEntry{}
	var order []string
	seen := map[string]bool{}

	reader := bufio.NewReaderSize(f, 64*1024)
	var offset int64
	for {
		lineBytes, err := reader.ReadBytes('\n')
		if err != nil {
			// EOF with no trailing newline: partial tail, stop here.
			break
		}
		content := lineBytes[:len(lineBytes)-1]
		if len(content) == 0 {
			offset += int64(len(lineBytes))
			continue
		}
		doc, derr := decodeDocument(content)
		if derr != nil {
			break
		}
		idVal, ok := doc["_id"].(string)
		if !ok || idVal == "" {
			break
		}
		length := int64(len(lineBytes))
		index[idVal] = indexEntry{offset: offset, length: length, checksum: xxh3.Hash(content)}
		if !seen[idVal] {
			seen[idVal] = true
			order = append(order, idVal)
		}
		offset += length
	}
	return index, order, nil
}

// migrateLegacyDocs reads every docs/<id>.json file (sorted by name for a
// deterministic result), wraps each with its ID, and appends it to a
// fresh data.jsonl. Files are left in place: migration is one-directional
// and non-destructive. Once data.jsonl exists, populateIndex no longer
// reads the docs directory.
func migrateLegacyDocs(docsDir, logPath string, entries []os.DirEntry) (map[string]indexEntry, []string, error) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, wrapIO("migrate legacy documents", err)
	}
	defer f.Close()

	index := map[string]indexEntry{}
	var order []string
	var offset int64

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		if err := ValidateID(id); err != nil {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(docsDir, entry.Name()))
		if err != nil {
			continue
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			continue
		}
		doc["_id"] = id

		data, err := marshalValue(doc)
		if err != nil {
			continue
		}
		data = append(data, '\n')

		if _, err := f.Write(data); err != nil {
			return nil, nil, wrapIO("migrate legacy documents", err)
		}
		index[id] = indexEntry{offset: offset, length: int64(len(data)), checksum: xxh3.Hash(data[:len(data)-1])}
		order = append(order, id)
		offset += int64(len(data))
	}

	if err := f.Sync(); err != nil {
		return nil, nil, wrapIO("migrate legacy documents", err)
	}
	return index, order, nil
}
