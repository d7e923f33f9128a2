package shelf

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

const defaultRootBatchSize = 5000

// Mode selects whether a Root may mutate its collections.
type Mode int

const (
	ModeReadWrite Mode = iota
	ModeReadOnly
)

type rootConfig struct {
	batchSize int
	mode      Mode
}

// RootOption configures OpenRoot.
type RootOption func(*rootConfig)

// ReadOnly opens the root without acquiring the write lock and refuses
// every mutating operation on collections opened through it.
func ReadOnly() RootOption {
	return func(c *rootConfig) { c.mode = ModeReadOnly }
}

// DefaultBatchSize overrides the batch size collections inherit unless
// they specify their own via BatchSize.
func DefaultBatchSize(n int) RootOption {
	return func(c *rootConfig) { c.batchSize = n }
}

// Root multiplexes several independent collections under one directory.
// In read-write mode it holds a process-advisory exclusive lock on a
// root-level sentinel file, so a second writer opening the same root
// fails fast with ErrLocked rather than corrupting logs by racing the
// first.
type Root struct {
	mu sync.Mutex

	path      string
	mode      Mode
	batchSize int
	lock      *fileLock
	lockFile  *os.File
	closed    bool
}

// OpenRoot opens or creates a root directory. In read-write mode it
// creates collections/ and metadata/ if missing and acquires the
// write lock; in read-only mode it touches nothing on disk and never
// takes the lock.
func OpenRoot(path string, opts ...RootOption) (*Root, error) {
	cfg := rootConfig{batchSize: defaultRootBatchSize, mode: ModeReadWrite}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Root{path: path, mode: cfg.mode, batchSize: cfg.batchSize}

	if cfg.mode == ModeReadOnly {
		return r, nil
	}

	if err := os.MkdirAll(collectionsPath(path), 0o755); err != nil {
		return nil, wrapIO("open root", err)
	}
	if err := os.MkdirAll(metadataPath(path), 0o755); err != nil {
		return nil, wrapIO("open root", err)
	}

	lockFile, err := os.OpenFile(lockFilePath(path), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, wrapIO("open root", err)
	}
	lock := &fileLock{}
	lock.setFile(lockFile)

	acquired, err := lock.TryLock(LockExclusive)
	if err != nil {
		lockFile.Close()
		return nil, wrapIO("open root", err)
	}
	if !acquired {
		lockFile.Close()
		return nil, fmt.Errorf("open root %q: %w", path, ErrLocked)
	}

	r.lock = lock
	r.lockFile = lockFile
	return r, nil
}

// Collection opens (creating if necessary) the named collection under
// this root, inheriting the root's default batch size and read-only
// mode unless overridden.
func (r *Root) Collection(name string, opts ...CollectionOption) (*Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("collection %q: %w", name, ErrClosed)
	}

	merged := make([]CollectionOption, 0, len(opts)+2)
	merged = append(merged, BatchSize(r.batchSize))
	if r.mode == ModeReadOnly {
		merged = append(merged, func(c *collectionConfig) { c.readOnly = true })
	}
	merged = append(merged, opts...)

	return OpenCollection(r.path, name, merged...)
}

// ListCollections returns the sorted names of immediate subdirectories of
// collections/ whose names do not start with '.'.
func (r *Root) ListCollections() ([]string, error) {
	entries, err := os.ReadDir(collectionsPath(r.path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapIO("list collections", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CollectionExists reports whether a collection directory exists.
func (r *Root) CollectionExists(name string) bool {
	_, err := os.Stat(collectionPath(r.path, name))
	return err == nil
}

// Close releases the write lock, if held. Close is idempotent.
func (r *Root) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.lock == nil {
		return nil
	}
	if err := r.lock.Unlock(); err != nil {
		return wrapIO("close root", err)
	}
	r.lock.setFile(nil)
	return r.lockFile.Close()
}
