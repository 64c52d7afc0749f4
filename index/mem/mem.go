// Package mem provides the in-memory partition index: an immutable columnar
// document store with an s2 cell inverted index for spatial candidates and a
// BM25 inverted index for text restriction and ranking.
//
// An Index is built once through a Builder and never mutated; Filter derives
// a fresh Index sharing nothing mutable with its source, so concurrent
// queries against either are safe.
package mem

import (
	"cmp"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/golang/geo/s2"

	"github.com/geoshard/geoshard/distance"
	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/lexical/bm25"
	"github.com/geoshard/geoshard/metadata"
)

// Options configures an Index.
type Options struct {
	// Distance computes the kilometre distance between two points. Nearest
	// neighbor ranking and hit distances use it.
	Distance distance.Func
}

// DefaultOptions is the default configuration.
var DefaultOptions = Options{
	Distance: geom.HaversineKm,
}

// WithDistance sets the distance function.
func WithDistance(fn distance.Func) func(*Options) {
	return func(o *Options) {
		o.Distance = fn
	}
}

// Index is an immutable spatial + text index over one partition's documents.
// Safe for concurrent readers.
type Index[K cmp.Ordered, V any] struct {
	opts   Options
	closed atomic.Bool

	keys    []K
	vals    []V
	fields  []metadata.Document
	shapes  []geom.Shape
	centers []geom.Point

	byKey   map[K]uint32
	cells   map[s2.CellID]*roaring.Bitmap
	cellIDs []s2.CellID
	text    *bm25.Index
}

// Compile-time check that Index satisfies the partition index contract.
var _ index.Local[string, any] = (*Index[string, any])(nil)

// freeze builds the immutable index structures over staged columns. It is
// shared by Builder.Build and Filter.
func freeze[K cmp.Ordered, V any](opts Options, keys []K, vals []V, fields []metadata.Document, shapes []geom.Shape) *Index[K, V] {
	x := &Index[K, V]{
		opts:    opts,
		keys:    keys,
		vals:    vals,
		fields:  fields,
		shapes:  shapes,
		centers: make([]geom.Point, len(keys)),
		byKey:   make(map[K]uint32, len(keys)),
		cells:   make(map[s2.CellID]*roaring.Bitmap),
	}

	tb := bm25.NewBuilder()
	for i := range keys {
		ord := uint32(i)
		x.byKey[keys[i]] = ord
		x.centers[i] = shapes[i].Centroid()

		for _, c := range geom.Covering(shapes[i]) {
			bm := x.cells[c]
			if bm == nil {
				bm = roaring.New()
				x.cells[c] = bm
			}
			bm.Add(ord)
		}

		tb.Add(textFields(fields[i]))
	}
	x.text = tb.Build()

	x.cellIDs = make([]s2.CellID, 0, len(x.cells))
	for c := range x.cells {
		x.cellIDs = append(x.cellIDs, c)
	}
	slices.Sort(x.cellIDs)

	return x
}

// textFields extracts the string fields full-text indexing covers.
func textFields(doc metadata.Document) map[string]string {
	var out map[string]string
	for name, v := range doc {
		if s, ok := v.AsString(); ok {
			if out == nil {
				out = make(map[string]string, len(doc))
			}
			out[name] = s
		}
	}
	return out
}

// Len returns the number of indexed documents.
func (x *Index[K, V]) Len() int { return len(x.keys) }

// Docs iterates the indexed documents in indexing order.
func (x *Index[K, V]) Docs() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if x.closed.Load() {
			return
		}
		for i := range x.keys {
			if !yield(x.keys[i], x.vals[i]) {
				return
			}
		}
	}
}

// Contains reports whether the partition holds the key.
func (x *Index[K, V]) Contains(key K) (bool, error) {
	if x.closed.Load() {
		return false, index.ErrClosed
	}
	_, ok := x.byKey[key]
	return ok, nil
}

// Filter returns a new Index over the documents keep accepts. The receiver
// is left untouched.
func (x *Index[K, V]) Filter(keep func(K, V) bool) (index.Local[K, V], error) {
	if x.closed.Load() {
		return nil, index.ErrClosed
	}

	var (
		keys   []K
		vals   []V
		fields []metadata.Document
		shapes []geom.Shape
	)
	for i := range x.keys {
		if !keep(x.keys[i], x.vals[i]) {
			continue
		}
		keys = append(keys, x.keys[i])
		vals = append(vals, x.vals[i])
		fields = append(fields, x.fields[i])
		shapes = append(shapes, x.shapes[i])
	}

	return freeze(x.opts, keys, vals, fields, shapes), nil
}

// Close marks the index closed. Idempotent; queries after Close fail with
// index.ErrClosed.
func (x *Index[K, V]) Close() error {
	x.closed.Store(true)
	return nil
}
