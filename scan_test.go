// Scan tests: predicate filtering, projection, and dead-record skipping.
package shelf

import "testing"

func TestScanAllDocuments(t *testing.T) {
	c := openTestCollection(t)
	c.Put("a1", Document{"name": "bolt"})
	c.Put("a2", Document{"name": "nut"})

	seq, err := c.Scan(ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var names []string
	for doc := range seq {
		names = append(names, doc["name"].(string))
	}
	if len(names) != 2 {
		t.Fatalf("got %d documents, want 2", len(names))
	}
}

func TestScanPredicateFiltersExact(t *testing.T) {
	c := openTestCollection(t)
	c.Put("a1", Document{"kind": "bolt", "qty": float64(3)})
	c.Put("a2", Document{"kind": "nut", "qty": float64(3)})

	seq, err := c.Scan(ScanOptions{Predicate: map[string]any{"kind": "bolt"}})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var count int
	for doc := range seq {
		count++
		if doc["kind"] != "bolt" {
			t.Errorf("unexpected doc in results: %v", doc)
		}
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestScanProjectionKeepsOnlyNamedFields(t *testing.T) {
	c := openTestCollection(t)
	c.Put("a1", Document{"kind": "bolt", "qty": float64(3), "color": "red"})

	seq, err := c.Scan(ScanOptions{Projection: []string{"kind"}})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for doc := range seq {
		if len(doc) != 1 || doc["kind"] != "bolt" {
			t.Errorf("projected doc = %v", doc)
		}
	}
}

// TestScanSkipsDeletedRecords verifies that a record still physically
// present in data.jsonl (deleted but not yet compacted) is excluded from
// Scan's results, since Scan checks index membership per line.
func TestScanSkipsDeletedRecords(t *testing.T) {
	c := openTestCollection(t)
	c.Put("a1", Document{"kind": "bolt"})
	c.Put("a2", Document{"kind": "nut"})
	if err := c.Delete("a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	seq, err := c.Scan(ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var ids []string
	for doc := range seq {
		ids = append(ids, doc["kind"].(string))
	}
	if len(ids) != 1 || ids[0] != "nut" {
		t.Errorf("ids = %v, want [nut]", ids)
	}
}

func TestScanEarlyBreakStopsIteration(t *testing.T) {
	c := openTestCollection(t)
	for i := 0; i < 5; i++ {
		c.Put(string(rune('a'+i)), Document{"n": float64(i)})
	}

	seq, err := c.Scan(ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	count := 0
	for range seq {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
