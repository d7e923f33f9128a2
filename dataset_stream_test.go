// Streaming dataset tests: lazy pipeline composition and the
// reservoir-buffer approximate shuffle.
package shelf

import "testing"

func seedStreamCollection(t *testing.T, n int) *Collection {
	t.Helper()
	c := openTestCollection(t)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		if err := c.Put(id, Document{"n": float64(i)}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	return c
}

func TestStreamDatasetIterateYieldsEverything(t *testing.T) {
	c := seedStreamCollection(t, 5)
	ds := NewStreamDataset(c)

	count := 0
	for _, err := range ds.Iterate() {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		count++
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}

func TestStreamDatasetMapAndFilter(t *testing.T) {
	c := seedStreamCollection(t, 5)
	ds := NewStreamDataset(c).
		Filter(func(d Document) bool {
			n, _ := toFloat(d["n"])
			return int(n)%2 == 0
		}).
		Map(func(d Document) Document {
			n, _ := toFloat(d["n"])
			out := cloneDoc(d)
			out["n"] = n * 10
			return out
		})

	var values []float64
	for doc, err := range ds.Iterate() {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		n, _ := toFloat(doc["n"])
		values = append(values, n)
	}
	if len(values) != 3 {
		t.Fatalf("values = %v, want 3 entries (0,2,4 scaled)", values)
	}
	for _, v := range values {
		if int(v)%10 != 0 {
			t.Errorf("value %v should be a multiple of 10", v)
		}
	}
}

// TestStreamDatasetFilterSeesRawDocument verifies that the filter is
// always evaluated against the raw scanned document, never the
// transformed one, regardless of whether Map or Filter was called
// first when building the pipeline.
func TestStreamDatasetFilterSeesRawDocument(t *testing.T) {
	c := seedStreamCollection(t, 5)
	ds := NewStreamDataset(c).
		Map(func(d Document) Document {
			n, _ := toFloat(d["n"])
			out := cloneDoc(d)
			out["n"] = n * 10
			return out
		}).
		Filter(func(d Document) bool {
			n, _ := toFloat(d["n"])
			return int(n)%2 == 0
		})

	var values []float64
	for doc, err := range ds.Iterate() {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		n, _ := toFloat(doc["n"])
		values = append(values, n)
	}
	if len(values) != 3 {
		t.Fatalf("values = %v, want 3 entries (0,2,4 scaled)", values)
	}
	for _, v := range values {
		if int(v)%10 != 0 {
			t.Errorf("value %v should be a multiple of 10; filter must see the raw document, not the transformed one", v)
		}
	}
}

func TestStreamDatasetTakeSkip(t *testing.T) {
	c := seedStreamCollection(t, 5)

	var taken []float64
	for doc, err := range NewStreamDataset(c).Take(2).Iterate() {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		n, _ := toFloat(doc["n"])
		taken = append(taken, n)
	}
	if len(taken) != 2 || taken[0] != 0 || taken[1] != 1 {
		t.Errorf("taken = %v, want [0 1]", taken)
	}

	var skipped []float64
	for doc, err := range NewStreamDataset(c).Skip(3).Iterate() {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		n, _ := toFloat(doc["n"])
		skipped = append(skipped, n)
	}
	if len(skipped) != 2 || skipped[0] != 3 || skipped[1] != 4 {
		t.Errorf("skipped = %v, want [3 4]", skipped)
	}
}

func TestStreamDatasetBatch(t *testing.T) {
	c := seedStreamCollection(t, 5)
	var sizes []int
	for chunk, err := range NewStreamDataset(c).Batch(2) {
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		sizes = append(sizes, len(chunk))
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [2 2 1]", sizes)
	}
}

// TestStreamDatasetShuffleIsPermutation verifies the reservoir-buffer
// shuffle never drops or duplicates elements, even when the buffer is
// smaller than the full dataset.
func TestStreamDatasetShuffleIsPermutation(t *testing.T) {
	c := seedStreamCollection(t, 20)
	ds := NewStreamDataset(c).Shuffle(5, 11)

	seen := map[float64]bool{}
	count := 0
	for doc, err := range ds.Iterate() {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		n, _ := toFloat(doc["n"])
		seen[n] = true
		count++
	}
	if count != 20 {
		t.Fatalf("count = %d, want 20", count)
	}
	if len(seen) != 20 {
		t.Errorf("shuffle dropped or duplicated elements: saw %d distinct", len(seen))
	}
}

// TestStreamDatasetShuffleIsDeterministic verifies that the same seed and
// buffer size reproduce the same output order against the same data.
func TestStreamDatasetShuffleIsDeterministic(t *testing.T) {
	c := seedStreamCollection(t, 20)

	var first, second []float64
	for doc, err := range NewStreamDataset(c).Shuffle(5, 99).Iterate() {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		n, _ := toFloat(doc["n"])
		first = append(first, n)
	}
	for doc, err := range NewStreamDataset(c).Shuffle(5, 99).Iterate() {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		n, _ := toFloat(doc["n"])
		second = append(second, n)
	}
	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("shuffle(5, 99) not deterministic at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestStreamDatasetEarlyBreakStopsIteration(t *testing.T) {
	c := seedStreamCollection(t, 10)
	count := 0
	for range NewStreamDataset(c).Iterate() {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}
