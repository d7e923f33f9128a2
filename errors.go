// Package shelf provides an embedded, single-writer, append-oriented
// document store with map-style and streaming dataset views.
//
// Shelf keeps documents in a newline-delimited JSON log per collection,
// backed by an in-memory offset index so that point lookups never scan
// the log. Writes are batched and only hit disk on drain, compaction
// rewrites the log to drop dead records, and a root handle multiplexes
// several collections under one advisory write lock.
package shelf

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store operations. Wrapped with fmt.Errorf
// and %w so callers can match them with errors.Is.
var (
	// ErrInvalidID is returned when a document ID fails validation.
	ErrInvalidID = errors.New("invalid document id")

	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrSchemaMismatch is returned by Put in strict mode when a document's
	// structural schema differs from the collection's first-seen schema.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrIO is returned when a filesystem operation fails.
	ErrIO = errors.New("io error")

	// ErrCorruption is returned when a stored record or the manifest
	// cannot be parsed. Malformed index.bin lines are skipped rather than
	// reported, and Verify reports checksum mismatches as a list of IDs.
	ErrCorruption = errors.New("corruption")

	// ErrLocked is returned when a root cannot acquire its write lock
	// because another process already holds it.
	ErrLocked = errors.New("root is locked by another writer")

	// ErrIndexOutOfBounds is returned by dataset positional access when
	// the index is outside [0, len).
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrClosed is returned when operating on a closed collection or root.
	ErrClosed = errors.New("closed")

	// ErrReadOnly is returned by mutating operations on a read-only root
	// or collection.
	ErrReadOnly = errors.New("root is read-only")
)

// wrapIO tags an underlying filesystem error with ErrIO so callers can
// test for it with errors.Is while still seeing the original cause.
func wrapIO(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}
