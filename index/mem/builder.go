package mem

import (
	"cmp"
	"fmt"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/metadata"
)

// DuplicateKeyError reports a key added to the same partition twice.
type DuplicateKeyError struct {
	Key any
}

// Error returns the error message for a duplicate key.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate document key %v", e.Key)
}

// Builder accumulates documents and freezes them into an immutable Index.
// Not safe for concurrent use; the built Index is.
type Builder[K cmp.Ordered, V any] struct {
	opts     Options
	shapeFn  index.ShapeFunc[K]
	fieldsFn index.FieldsFunc[V]

	keys   []K
	vals   []V
	fields []metadata.Document
	shapes []geom.Shape
	seen   map[K]struct{}
}

// NewBuilder creates a Builder deriving geometry through shapeFn and indexed
// fields through fieldsFn. shapeFn must be non-nil; a nil fieldsFn indexes
// no fields.
func NewBuilder[K cmp.Ordered, V any](shapeFn index.ShapeFunc[K], fieldsFn index.FieldsFunc[V], optFns ...func(*Options)) *Builder[K, V] {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Distance == nil {
		opts.Distance = geom.HaversineKm
	}

	return &Builder[K, V]{
		opts:     opts,
		shapeFn:  shapeFn,
		fieldsFn: fieldsFn,
		seen:     make(map[K]struct{}),
	}
}

// Add derives and stages one document. Keys must be unique within the
// partition.
func (b *Builder[K, V]) Add(key K, value V) error {
	if _, dup := b.seen[key]; dup {
		return &DuplicateKeyError{Key: key}
	}

	shape, err := b.shapeFn(key)
	if err != nil {
		return fmt.Errorf("derive shape for key %v: %w", key, err)
	}
	if shape == nil {
		return fmt.Errorf("derive shape for key %v: nil shape", key)
	}

	var doc metadata.Document
	if b.fieldsFn != nil {
		// Clone so later caller mutation cannot reach the index.
		doc = b.fieldsFn(value).Clone()
	}

	b.seen[key] = struct{}{}
	b.keys = append(b.keys, key)
	b.vals = append(b.vals, value)
	b.fields = append(b.fields, doc)
	b.shapes = append(b.shapes, shape)
	return nil
}

// Len returns the number of staged documents.
func (b *Builder[K, V]) Len() int { return len(b.keys) }

// Build freezes the staged documents into an Index. The Builder must not be
// used afterwards.
func (b *Builder[K, V]) Build() *Index[K, V] {
	idx := freeze(b.opts, b.keys, b.vals, b.fields, b.shapes)
	b.keys, b.vals, b.fields, b.shapes, b.seen = nil, nil, nil, nil, nil
	return idx
}
