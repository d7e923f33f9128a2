// Collection lifecycle tests: open/put/get/close and the batched drain
// path that sits underneath every mutating operation.
package shelf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestCollection(t *testing.T, opts ...CollectionOption) *Collection {
	t.Helper()
	root := t.TempDir()
	c, err := OpenCollection(root, "widgets", opts...)
	if err != nil {
		t.Fatalf("open collection: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCollection(t)

	if err := c.Put("a1", Document{"name": "bolt", "qty": float64(4)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	doc, err := c.Get("a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["name"] != "bolt" {
		t.Errorf("name = %v, want bolt", doc["name"])
	}
}

// TestPutBatchesBeforeDrain verifies that a Put below the batch size does
// not touch disk: data.jsonl must not exist yet, and the document must
// still be visible through Get from the pending batch.
func TestPutBatchesBeforeDrain(t *testing.T) {
	root := t.TempDir()
	c, err := OpenCollection(root, "widgets", BatchSize(10))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if err := c.Put("a1", Document{"name": "bolt"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	logPath := filepath.Join(root, "collections", "widgets", "meta", "data.jsonl")
	if _, err := os.Stat(logPath); err == nil {
		t.Fatalf("data.jsonl should not exist before drain")
	}

	doc, err := c.Get("a1")
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if doc["name"] != "bolt" {
		t.Errorf("name = %v, want bolt", doc["name"])
	}
}

// TestPutWithinBatchLastWriterWins verifies that two Puts to the same ID
// within one undrained batch collapse to a single pending entry holding
// the second value.
func TestPutWithinBatchLastWriterWins(t *testing.T) {
	c := openTestCollection(t, BatchSize(10))

	c.Put("a1", Document{"v": float64(1)})
	c.Put("a1", Document{"v": float64(2)})

	if len(c.pending) != 1 {
		t.Fatalf("pending len = %d, want 1", len(c.pending))
	}
	doc, err := c.Get("a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["v"].(float64) != 2 {
		t.Errorf("v = %v, want 2", doc["v"])
	}
}

func TestGetNotFound(t *testing.T) {
	c := openTestCollection(t)
	if _, err := c.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutInvalidID(t *testing.T) {
	c := openTestCollection(t)
	if err := c.Put("../escape", Document{}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("err = %v, want ErrInvalidID", err)
	}
}

func TestCloseThenOperationsFail(t *testing.T) {
	c := openTestCollection(t)
	c.Put("a1", Document{"x": float64(1)})
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if _, err := c.Get("a1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("get after close = %v, want ErrClosed", err)
	}
}

// TestReopenAfterCloseReadsPersisted verifies that data survives a close
// and a fresh OpenCollection against the same root: drain-on-close must
// have fsynced the log and written a fresh index.bin.
func TestReopenAfterCloseReadsPersisted(t *testing.T) {
	root := t.TempDir()
	c1, err := OpenCollection(root, "widgets")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c1.Put("a1", Document{"name": "bolt"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	c2, err := OpenCollection(root, "widgets")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()

	doc, err := c2.Get("a1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if doc["name"] != "bolt" {
		t.Errorf("name = %v, want bolt", doc["name"])
	}
}

func TestStrictModeRejectsSchemaMismatch(t *testing.T) {
	c := openTestCollection(t, Strict(true))

	if err := c.Put("a1", Document{"name": "bolt", "qty": float64(1)}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	err := c.Put("a2", Document{"name": "nut"})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestStrictModeAcceptsMatchingSchema(t *testing.T) {
	c := openTestCollection(t, Strict(true))

	if err := c.Put("a1", Document{"name": "bolt", "qty": float64(1)}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := c.Put("a2", Document{"name": "nut", "qty": float64(2)}); err != nil {
		t.Fatalf("second put: %v", err)
	}
}

func TestReadOnlyCollectionRejectsMutation(t *testing.T) {
	root := t.TempDir()
	c, err := OpenCollection(root, "widgets")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c.Put("a1", Document{"x": float64(1)})
	c.Close()

	ro, err := OpenCollection(root, "widgets", func(cfg *collectionConfig) { cfg.readOnly = true })
	if err != nil {
		t.Fatalf("reopen read-only: %v", err)
	}
	defer ro.Close()

	if err := ro.Put("a2", Document{"x": float64(2)}); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("put on read-only = %v, want ErrReadOnly", err)
	}
	doc, err := ro.Get("a1")
	if err != nil {
		t.Fatalf("get on read-only: %v", err)
	}
	if n, _ := toFloat(doc["x"]); n != 1 {
		t.Errorf("x = %v, want 1", doc["x"])
	}
}

