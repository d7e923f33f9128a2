// Root multiplexer tests: bootstrap, collection opening, listing, and
// the non-blocking write lock that makes a second writer fail fast.
package shelf

import (
	"errors"
	"testing"
)

func TestOpenRootCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenRoot(dir)
	if err != nil {
		t.Fatalf("open root: %v", err)
	}
	defer r.Close()

	if _, err := r.ListCollections(); err != nil {
		t.Fatalf("list collections: %v", err)
	}
}

func TestRootCollectionOpensAndPersists(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenRoot(dir)
	if err != nil {
		t.Fatalf("open root: %v", err)
	}
	defer r.Close()

	col, err := r.Collection("widgets")
	if err != nil {
		t.Fatalf("open collection: %v", err)
	}
	if err := col.Put("a1", Document{"kind": "bolt"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := col.Close(); err != nil {
		t.Fatalf("close collection: %v", err)
	}

	if !r.CollectionExists("widgets") {
		t.Errorf("widgets should exist")
	}
	names, err := r.ListCollections()
	if err != nil || len(names) != 1 || names[0] != "widgets" {
		t.Errorf("names = %v, err = %v", names, err)
	}
}

// TestSecondWriterFailsFast verifies that a second Root opened
// read-write against the same path fails immediately with ErrLocked
// instead of blocking, since the first Root still holds the exclusive
// advisory lock.
func TestSecondWriterFailsFast(t *testing.T) {
	dir := t.TempDir()
	r1, err := OpenRoot(dir)
	if err != nil {
		t.Fatalf("open first root: %v", err)
	}
	defer r1.Close()

	_, err = OpenRoot(dir)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second open err = %v, want ErrLocked", err)
	}
}

// TestWriterCanReopenAfterClose verifies that closing a Root releases
// the lock so a subsequent writer can acquire it.
func TestWriterCanReopenAfterClose(t *testing.T) {
	dir := t.TempDir()
	r1, err := OpenRoot(dir)
	if err != nil {
		t.Fatalf("open first root: %v", err)
	}
	if err := r1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r2, err := OpenRoot(dir)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	defer r2.Close()
}

func TestReadOnlyRootNeverCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenRoot(dir, ReadOnly())
	if err != nil {
		t.Fatalf("open read-only root: %v", err)
	}
	defer r.Close()

	names, err := r.ListCollections()
	if err != nil {
		t.Fatalf("list collections on empty read-only root: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want empty", names)
	}
}

func TestReadOnlyRootDoesNotContendForLock(t *testing.T) {
	dir := t.TempDir()
	rw, err := OpenRoot(dir)
	if err != nil {
		t.Fatalf("open read-write root: %v", err)
	}
	defer rw.Close()

	ro, err := OpenRoot(dir, ReadOnly())
	if err != nil {
		t.Fatalf("open read-only root alongside a writer: %v", err)
	}
	defer ro.Close()
}
