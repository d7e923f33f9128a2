package shelf

import (
	"fmt"
	"iter"
	"math/rand/v2"
)

// MapFunc transforms one document into another. It must be pure: the
// same input always produces the same output, since a composed chain of
// transforms may be replayed any number of times as a dataset is sliced,
// shuffled, and re-read.
type MapFunc func(Document) Document

// FilterFunc reports whether a document should be kept.
type FilterFunc func(Document) bool

// MapDataset is a map-style, randomly-addressable view over a
// Collection: a frozen anchor order of IDs, an optional index vector
// composing select/shuffle/take/skip on top of it, and an optional
// composed transform applied on read.
type MapDataset struct {
	col       *Collection
	ids       []string
	indices   []int
	transform MapFunc
}

// NewMapDataset snapshots col's current ID order (draining any pending
// writes first) as the dataset's frozen anchor order. Later writes to
// col are not reflected in datasets already constructed from it.
func NewMapDataset(col *Collection) (*MapDataset, error) {
	ids, err := col.ListIds()
	if err != nil {
		return nil, err
	}
	frozen := make([]string, len(ids))
	copy(frozen, ids)
	return &MapDataset{col: col, ids: frozen}, nil
}

// Len returns the dataset's current size: the index vector's length if
// one has been composed in, else the anchor order's length.
func (d *MapDataset) Len() int {
	if d.indices != nil {
		return len(d.indices)
	}
	return len(d.ids)
}

func (d *MapDataset) resolvePosition(i int) (int, error) {
	n := d.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("mapdataset: index %d, len %d: %w", i, n, ErrIndexOutOfBounds)
	}
	if d.indices != nil {
		return d.indices[i], nil
	}
	return i, nil
}

// Get returns the document at logical position i (negative indices count
// from the end), with the dataset's composed transform applied.
func (d *MapDataset) Get(i int) (Document, error) {
	pos, err := d.resolvePosition(i)
	if err != nil {
		return nil, err
	}
	doc, err := d.col.Get(d.ids[pos])
	if err != nil {
		return nil, err
	}
	if d.transform != nil {
		doc = d.transform(doc)
	}
	return doc, nil
}

// Slice returns the documents in [start, stop), clamped to the dataset's
// bounds the way a Python slice would be.
func (d *MapDataset) Slice(start, stop int) ([]Document, error) {
	n := d.Len()
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop > n {
		stop = n
	}
	if stop < start {
		stop = start
	}

	out := make([]Document, 0, stop-start)
	for i := start; i < stop; i++ {
		doc, err := d.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Select returns a new dataset restricted to positions, resolved through
// any index vector already composed in.
func (d *MapDataset) Select(positions []int) (*MapDataset, error) {
	resolved := make([]int, len(positions))
	for i, p := range positions {
		pos, err := d.resolvePosition(p)
		if err != nil {
			return nil, err
		}
		resolved[i] = pos
	}
	return &MapDataset{col: d.col, ids: d.ids, indices: resolved, transform: d.transform}, nil
}

// Shuffle produces a deterministic permutation of the dataset's current
// order: the same seed applied to the same current order always yields
// the same permutation, via math/rand/v2's PCG generator.
func (d *MapDataset) Shuffle(seed uint64) *MapDataset {
	n := d.Len()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	resolved := make([]int, n)
	for i, p := range perm {
		if d.indices != nil {
			resolved[i] = d.indices[p]
		} else {
			resolved[i] = p
		}
	}
	return &MapDataset{col: d.col, ids: d.ids, indices: resolved, transform: d.transform}
}

// Map returns a new dataset with fn composed after any existing
// transform.
func (d *MapDataset) Map(fn MapFunc) *MapDataset {
	composed := fn
	if d.transform != nil {
		prior := d.transform
		composed = func(doc Document) Document { return fn(prior(doc)) }
	}
	return &MapDataset{col: d.col, ids: d.ids, indices: d.indices, transform: composed}
}

// Filter returns a new dataset keeping only positions whose (transformed)
// document satisfies pred.
func (d *MapDataset) Filter(pred FilterFunc) (*MapDataset, error) {
	var keep []int
	for i := 0; i < d.Len(); i++ {
		doc, err := d.Get(i)
		if err != nil {
			return nil, err
		}
		if pred(doc) {
			keep = append(keep, i)
		}
	}
	return d.Select(keep)
}

// Take returns a new dataset containing the first n positions.
func (d *MapDataset) Take(n int) (*MapDataset, error) {
	if n > d.Len() {
		n = d.Len()
	}
	if n < 0 {
		n = 0
	}
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	return d.Select(positions)
}

// Skip returns a new dataset without the first n positions.
func (d *MapDataset) Skip(n int) (*MapDataset, error) {
	total := d.Len()
	if n > total {
		n = total
	}
	if n < 0 {
		n = 0
	}
	positions := make([]int, total-n)
	for i := range positions {
		positions[i] = n + i
	}
	return d.Select(positions)
}

// Batch returns a lazy sequence of sequential chunks of size size (the
// last chunk may be shorter).
func (d *MapDataset) Batch(size int) iter.Seq2[[]Document, error] {
	return func(yield func([]Document, error) bool) {
		n := d.Len()
		for start := 0; start < n; start += size {
			end := start + size
			if end > n {
				end = n
			}
			chunk, err := d.Slice(start, end)
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// Features infers a field-to-type map from the dataset's first document,
// or nil if the dataset is empty.
func (d *MapDataset) Features() (map[string]string, error) {
	if d.Len() == 0 {
		return nil, nil
	}
	doc, err := d.Get(0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		out[k] = featureTag(v)
	}
	return out, nil
}
