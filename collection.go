package shelf

import (
	"fmt"
	"os"
	"sync"
)

const defaultBatchSize = 1000

// indexEntry locates one live record in data.jsonl.
type indexEntry struct {
	offset   int64
	length   int64
	checksum uint64
}

// pendingWrite is a document queued for the next drain.
type pendingWrite struct {
	id  string
	doc Document
}

// collectionConfig accumulates CollectionOption values before Open.
type collectionConfig struct {
	batchSize int
	strict    bool
	history   bool
	readOnly  bool
}

// CollectionOption configures OpenCollection.
type CollectionOption func(*collectionConfig)

// BatchSize overrides the number of pending writes that accumulate
// before Put triggers a drain to disk.
func BatchSize(n int) CollectionOption {
	return func(c *collectionConfig) { c.batchSize = n }
}

// Strict enables schema enforcement: once the first document is written,
// every subsequent Put must share its structural schema fingerprint or
// fail with ErrSchemaMismatch.
func Strict(strict bool) CollectionOption {
	return func(c *collectionConfig) { c.strict = strict }
}

// History enables the optional compressed version-history supplement
// (see history.go): overwriting a document that has already been drained
// appends the prior version to meta/history.jsonl before the new value is
// drained.
func History(enabled bool) CollectionOption {
	return func(c *collectionConfig) { c.history = enabled }
}

// Collection is a single append-oriented document log plus its
// in-memory offset index. A Collection is not safe for concurrent use by
// multiple goroutines without external synchronization beyond what its
// own mutex provides for internal bookkeeping; the store is designed
// around a single cooperative writer, per spec.
type Collection struct {
	mu sync.Mutex

	root string
	name string

	batchSize int
	strict    bool
	withHist  bool
	readOnly  bool
	closed    bool

	manifest *Manifest

	index map[string]indexEntry
	order []string

	pending      []pendingWrite
	pendingIndex map[string]int

	dirty bool
}

// OpenCollection opens (creating if necessary) the named collection under
// root. In read-only mode the collection's directories must already
// exist and mutating operations fail with ErrReadOnly.
func OpenCollection(root, name string, opts ...CollectionOption) (*Collection, error) {
	cfg := collectionConfig{batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	docsDir := docsPath(root, name)
	metaDir := metaPath(root, name)

	if cfg.readOnly {
		if _, err := os.Stat(metaDir); err != nil {
			return nil, wrapIO("open collection", err)
		}
	} else {
		if err := os.MkdirAll(docsDir, 0o755); err != nil {
			return nil, wrapIO("open collection", err)
		}
		if err := os.MkdirAll(metaDir, 0o755); err != nil {
			return nil, wrapIO("open collection", err)
		}
	}

	manifest, err := loadManifest(manifestPath(root, name))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("open collection %q: %w: %w", name, ErrCorruption, err)
		}
		manifest = newManifest(name, cfg.strict)
		if !cfg.readOnly {
			if err := saveManifest(manifestPath(root, name), manifest); err != nil {
				return nil, wrapIO("open collection: write manifest", err)
			}
		}
	}
	effectiveStrict := cfg.strict || manifest.Strict
	manifest.Strict = effectiveStrict

	index, order, err := populateIndex(root, name, docsDir, cfg.readOnly)
	if err != nil {
		return nil, err
	}

	c := &Collection{
		root:         root,
		name:         name,
		batchSize:    cfg.batchSize,
		strict:       effectiveStrict,
		withHist:     cfg.history,
		readOnly:     cfg.readOnly,
		manifest:     manifest,
		index:        index,
		order:        order,
		pendingIndex: map[string]int{},
	}
	c.manifest.DocCount = len(c.index)
	return c, nil
}

func (c *Collection) dataLogPath() string     { return dataLogPath(c.root, c.name) }
func (c *Collection) indexFilePath() string   { return indexFilePath(c.root, c.name) }
func (c *Collection) manifestPath() string    { return manifestPath(c.root, c.name) }
func (c *Collection) orderFilePath() string   { return orderFilePath(c.root, c.name) }
func (c *Collection) historyFilePath() string { return historyFilePath(c.root, c.name) }

// Flush drains pending writes to data.jsonl and, if the index has
// changed since the last flush, rewrites index.bin.
func (c *Collection) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Collection) flushLocked() error {
	if c.closed {
		return fmt.Errorf("flush: %w", ErrClosed)
	}
	if c.readOnly {
		return nil
	}
	if err := c.drainLocked(); err != nil {
		return err
	}
	if c.dirty {
		if err := c.persistIndexLocked(); err != nil {
			return err
		}
		if err := saveManifest(c.manifestPath(), c.manifest); err != nil {
			return wrapIO("flush: write manifest", err)
		}
		c.dirty = false
	}
	return nil
}

// Close flushes pending writes and marks the collection unusable. Close
// is idempotent.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if !c.readOnly {
		if err := c.flushLocked(); err != nil {
			return err
		}
	}
	c.closed = true
	return nil
}
