package shelf

import (
	"iter"
	"math/rand/v2"
)

// StreamDataset is a lazy, forward-only view over a Collection: a single
// composed filter and a single composed transform applied as records are
// scanned, optionally with an approximate reservoir-buffer shuffle in
// front, and an ordered list of positional restrictions (Take/Skip).
//
// filter and transform are each a single slot, not a pipeline: calling
// Map or Filter composes into that dataset's own slot regardless of
// which was called first, and every document is tested against filter
// before transform is ever applied, independent of construction order.
//
// restrictions are stored as factories rather than bound closures, so
// that every call to Iterate builds a fresh set of counters: a Take(n)
// or Skip(n) restriction counts documents per traversal, and two
// independent range-over-func calls on the same StreamDataset must not
// share that counting state.
type StreamDataset struct {
	col          *Collection
	opts         ScanOptions
	filter       FilterFunc
	transform    MapFunc
	restrictions []func() func(Document) bool
	bufferSize   int
	shuffleSeed  uint64
	shuffle      bool
}

// NewStreamDataset creates a streaming view over col, scanning every live
// document in on-disk order.
func NewStreamDataset(col *Collection) *StreamDataset {
	return &StreamDataset{col: col}
}

func (s *StreamDataset) clone() *StreamDataset {
	cp := *s
	cp.restrictions = append([]func() func(Document) bool{}, s.restrictions...)
	return &cp
}

// Shuffle enables an approximate shuffle: a reservoir of bufferSize
// documents is filled, then for each subsequent document a uniformly
// random slot in the reservoir is evicted in its place; once the
// underlying scan is exhausted, the remaining reservoir is shuffled and
// drained. This never materializes the full dataset, at the cost of only
// approximating a true uniform shuffle when bufferSize < dataset size.
func (s *StreamDataset) Shuffle(bufferSize int, seed uint64) *StreamDataset {
	cp := s.clone()
	cp.shuffle = true
	cp.bufferSize = bufferSize
	cp.shuffleSeed = seed
	return cp
}

// Map composes fn into the dataset's transform slot: if a prior
// transform exists, the new transform is fn ∘ prior.
func (s *StreamDataset) Map(fn MapFunc) *StreamDataset {
	cp := s.clone()
	composed := fn
	if s.transform != nil {
		prior := s.transform
		composed = func(doc Document) Document { return fn(prior(doc)) }
	}
	cp.transform = composed
	return cp
}

// Filter composes pred into the dataset's filter slot via logical AND:
// a document must satisfy every filter ever composed in to pass.
func (s *StreamDataset) Filter(pred FilterFunc) *StreamDataset {
	cp := s.clone()
	composed := pred
	if s.filter != nil {
		prior := s.filter
		composed = func(doc Document) bool { return prior(doc) && pred(doc) }
	}
	cp.filter = composed
	return cp
}

// Take returns a dataset yielding only the first n documents that pass
// the filter/transform.
func (s *StreamDataset) Take(n int) *StreamDataset {
	cp := s.clone()
	cp.restrictions = append(cp.restrictions, func() func(Document) bool {
		count := 0
		return func(Document) bool {
			if count >= n {
				return false
			}
			count++
			return true
		}
	})
	return cp
}

// Skip returns a dataset that drops the first n documents it would
// otherwise yield.
func (s *StreamDataset) Skip(n int) *StreamDataset {
	cp := s.clone()
	cp.restrictions = append(cp.restrictions, func() func(Document) bool {
		seen := 0
		return func(Document) bool {
			if seen < n {
				seen++
				return false
			}
			return true
		}
	})
	return cp
}

// process applies the filter first and, if it passes, the transform,
// then runs the document through each positional restriction in order.
// It returns the resulting document and whether it should be yielded.
func (s *StreamDataset) process(restrictions []func(Document) bool, doc Document) (Document, bool) {
	if s.filter != nil && !s.filter(doc) {
		return nil, false
	}
	if s.transform != nil {
		doc = s.transform(doc)
	}
	for _, r := range restrictions {
		if !r(doc) {
			return nil, false
		}
	}
	return doc, true
}

// buildRestrictions instantiates one fresh counter closure per
// restriction for a single traversal.
func (s *StreamDataset) buildRestrictions() []func(Document) bool {
	fns := make([]func(Document) bool, len(s.restrictions))
	for i, factory := range s.restrictions {
		fns[i] = factory()
	}
	return fns
}

// Iterate returns the dataset's sequence of (document, error) pairs,
// applying the composed filter, then transform, then any Take/Skip
// restrictions, and finally, if enabled, the reservoir-buffer shuffle.
// Each call starts a fresh traversal: restriction counters reset, and
// the underlying Scan re-opens the log independently of any other
// in-flight Iterate call.
func (s *StreamDataset) Iterate() iter.Seq2[Document, error] {
	if s.shuffle && s.bufferSize > 0 {
		return s.iterateShuffled()
	}
	return s.iteratePlain()
}

func (s *StreamDataset) iteratePlain() iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		seq, err := s.col.Scan(s.opts)
		if err != nil {
			yield(nil, err)
			return
		}
		restrictions := s.buildRestrictions()
		for doc := range seq {
			out, ok := s.process(restrictions, doc)
			if !ok {
				continue
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

func (s *StreamDataset) iterateShuffled() iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		seq, err := s.col.Scan(s.opts)
		if err != nil {
			yield(nil, err)
			return
		}

		next, stop := iter.Pull(seq)
		defer stop()

		restrictions := s.buildRestrictions()
		rng := rand.New(rand.NewPCG(s.shuffleSeed, s.shuffleSeed))
		buffer := make([]Document, 0, s.bufferSize)

		pull := func() (Document, bool) {
			for {
				doc, ok := next()
				if !ok {
					return nil, false
				}
				out, keep := s.process(restrictions, doc)
				if keep {
					return out, true
				}
			}
		}

		for len(buffer) < s.bufferSize {
			doc, ok := pull()
			if !ok {
				break
			}
			buffer = append(buffer, doc)
		}

		for {
			doc, ok := pull()
			if !ok {
				break
			}
			i := rng.IntN(len(buffer))
			out := buffer[i]
			buffer[i] = doc
			if !yield(out, nil) {
				return
			}
		}

		rng.Shuffle(len(buffer), func(i, j int) { buffer[i], buffer[j] = buffer[j], buffer[i] })
		for _, doc := range buffer {
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// Batch returns a lazy sequence of sequential chunks of size size (the
// last chunk, if any, may be shorter).
func (s *StreamDataset) Batch(size int) iter.Seq2[[]Document, error] {
	return func(yield func([]Document, error) bool) {
		chunk := make([]Document, 0, size)
		for doc, err := range s.Iterate() {
			if err != nil {
				yield(nil, err)
				return
			}
			chunk = append(chunk, doc)
			if len(chunk) == size {
				if !yield(chunk, nil) {
					return
				}
				chunk = make([]Document, 0, size)
			}
		}
		if len(chunk) > 0 {
			yield(chunk, nil)
		}
	}
}
