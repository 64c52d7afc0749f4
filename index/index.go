// Package index defines the contract partition-local spatial indexes
// satisfy, and the hit type query results are made of.
package index

import (
	"cmp"
	"context"
	"errors"
	"iter"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/lexical"
	"github.com/geoshard/geoshard/metadata"
)

// ErrClosed is returned by every operation invoked after Close.
var ErrClosed = errors.New("index: closed")

// Hit is one scored search result.
type Hit[K cmp.Ordered, V any] struct {
	// Key is the document identifier.
	Key K

	// Value is the indexed payload.
	Value V

	// Score ranks the hit; higher is better. Nearest-neighbor searches score
	// 1/(1+d), text searches score BM25 relevance, and pure predicate
	// matches score a constant 1.
	Score float64

	// DistanceKm is the great-circle distance from the query position to the
	// document's representative point, where the query has one.
	DistanceKm float64

	// Fields is the document's indexed field set, shared with the index.
	// Callers must treat it as read-only.
	Fields metadata.Document
}

// CompareHits orders hits best-first: descending score, ties broken by
// ascending key. Every result slice in this module is sorted by it, which
// makes merges across partitions deterministic.
func CompareHits[K cmp.Ordered, V any](a, b Hit[K, V]) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.Key, b.Key)
}

// WorseHit reports whether a ranks after b. Bounded top-k accumulators use
// it as their eviction order.
func WorseHit[K cmp.Ordered, V any](a, b Hit[K, V]) bool {
	return CompareHits(a, b) > 0
}

// ShapeFunc derives a document's geometry from its key.
type ShapeFunc[K cmp.Ordered] func(K) (geom.Shape, error)

// FieldsFunc derives a document's indexed fields from its payload. A nil
// document is legal and indexes nothing.
type FieldsFunc[V any] func(V) metadata.Document

// Local answers queries over one partition's documents.
//
// Query methods return hits already sorted by CompareHits, at most k of
// them; k ≤ 0 and an empty partition both yield an empty non-nil slice.
// Implementations are safe for concurrent readers; Filter produces a new
// index rather than mutating the receiver.
type Local[K cmp.Ordered, V any] interface {
	// KNN returns the k documents nearest to at, restricted to those
	// matching text, nearest first.
	KNN(ctx context.Context, at geom.Point, k int, text lexical.Query) ([]Hit[K, V], error)

	// Circle returns documents whose geometry satisfies pred against the
	// circle of radiusKm around center.
	Circle(ctx context.Context, center geom.Point, radiusKm float64, k int, pred geom.Predicate, text lexical.Query) ([]Hit[K, V], error)

	// Rect returns documents whose geometry satisfies pred against box.
	Rect(ctx context.Context, box geom.Rect, k int, pred geom.Predicate, text lexical.Query) ([]Hit[K, V], error)

	// Spatial returns documents whose geometry satisfies pred against an
	// arbitrary query shape.
	Spatial(ctx context.Context, shape geom.Shape, k int, pred geom.Predicate, text lexical.Query) ([]Hit[K, V], error)

	// Text returns the k documents most relevant to the text query.
	Text(ctx context.Context, query lexical.Query, k int) ([]Hit[K, V], error)

	// Contains reports whether the partition holds the key.
	Contains(key K) (bool, error)

	// Filter returns a new index over the documents keep accepts.
	Filter(keep func(K, V) bool) (Local[K, V], error)

	// Len returns the number of indexed documents.
	Len() int

	// Docs iterates the partition's documents in indexing order. A closed
	// index yields nothing.
	Docs() iter.Seq2[K, V]

	// Close releases index resources. Idempotent; operations after Close
	// fail with ErrClosed.
	Close() error
}
