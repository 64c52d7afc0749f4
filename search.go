package geoshard

import (
	"cmp"
	"context"
	"errors"
	"iter"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/metadata"
)

// DefaultK is the result bound a fluent query starts with.
const DefaultK = 10

// Query is a fluent alternative to the positional search methods:
//
//	hits, err := coll.Query().
//		Near(geom.Point{Lon: 13.4, Lat: 52.5}).
//		Within(25).
//		Text("cuisine:ramen").
//		K(5).
//		Execute(ctx)
//
// Query values are immutable; every clause returns a modified copy, so
// partial queries can be stored and branched. Exactly one position clause
// (Near, InRect, InShape, InWKT) may be set; Text may stand alone or
// combine with any of them.
type Query[K cmp.Ordered, V any] struct {
	coll *Collection[K, V]

	at        geom.Point
	hasNear   bool
	radiusKm  float64
	hasRadius bool
	box       geom.Rect
	hasRect   bool
	shape     geom.Shape
	wkt       string
	hasWKT    bool

	text   string
	pred   geom.Predicate
	fields metadata.FilterSet
	k      int

	err error
}

// Query starts a fluent query with k = DefaultK and the Intersects
// predicate.
func (c *Collection[K, V]) Query() Query[K, V] {
	return Query[K, V]{coll: c, k: DefaultK}
}

func (q Query[K, V]) positioned() bool {
	return q.hasNear || q.hasRect || q.shape != nil || q.hasWKT
}

func (q Query[K, V]) clauseErr(msg string) Query[K, V] {
	if q.err == nil {
		q.err = errors.New(msg)
	}
	return q
}

// Near anchors the query at a point. Alone it ranks by distance; followed
// by Within it becomes a circle query.
func (q Query[K, V]) Near(at geom.Point) Query[K, V] {
	if q.positioned() {
		return q.clauseErr("multiple position clauses")
	}
	q.at = at
	q.hasNear = true
	return q
}

// Within turns a Near clause into a circle query with the given radius in
// kilometres.
func (q Query[K, V]) Within(radiusKm float64) Query[K, V] {
	if !q.hasNear {
		return q.clauseErr("Within requires Near")
	}
	q.radiusKm = radiusKm
	q.hasRadius = true
	return q
}

// InRect restricts the query to a bounding box.
func (q Query[K, V]) InRect(box geom.Rect) Query[K, V] {
	if q.positioned() {
		return q.clauseErr("multiple position clauses")
	}
	q.box = box
	q.hasRect = true
	return q
}

// InShape restricts the query to an arbitrary shape.
func (q Query[K, V]) InShape(shape geom.Shape) Query[K, V] {
	if q.positioned() {
		return q.clauseErr("multiple position clauses")
	}
	if shape == nil {
		return q.clauseErr("nil query shape")
	}
	q.shape = shape
	return q
}

// InWKT restricts the query to a WKT geometry. The text is parsed when the
// query executes; malformed WKT surfaces as *geom.ParseError there.
func (q Query[K, V]) InWKT(wkt string) Query[K, V] {
	if q.positioned() {
		return q.clauseErr("multiple position clauses")
	}
	q.wkt = wkt
	q.hasWKT = true
	return q
}

// Text adds a text clause. Combined with a position clause it restricts
// the candidates; alone it is a relevance-ranked text query.
func (q Query[K, V]) Text(query string) Query[K, V] {
	q.text = query
	return q
}

// Predicate sets the spatial predicate for region clauses. The default is
// Intersects. Near without Within ignores it.
func (q Query[K, V]) Predicate(p geom.Predicate) Query[K, V] {
	q.pred = p
	return q
}

// Where appends metadata post-filters. All filters must match.
func (q Query[K, V]) Where(filters ...metadata.Filter) Query[K, V] {
	q.fields = append(q.fields[:len(q.fields):len(q.fields)], filters...)
	return q
}

// K bounds the number of results.
func (q Query[K, V]) K(k int) Query[K, V] {
	q.k = k
	return q
}

// Execute runs the query. A query with neither a position clause nor text
// fails with ErrEmptyQuery.
func (q Query[K, V]) Execute(ctx context.Context) ([]Hit[K, V], error) {
	if q.err != nil {
		return nil, q.err
	}

	opt := func(o *SearchOptions) {
		o.Text = q.text
		o.Predicate = q.pred
		o.Fields = q.fields
	}

	switch {
	case q.hasWKT:
		return q.coll.SpatialSearch(ctx, q.wkt, q.k, opt)
	case q.shape != nil:
		return q.coll.SpatialSearchShape(ctx, q.shape, q.k, opt)
	case q.hasRect:
		return q.coll.RectSearch(ctx, q.box, q.k, opt)
	case q.hasNear && q.hasRadius:
		return q.coll.CircleSearch(ctx, q.at, q.radiusKm, q.k, opt)
	case q.hasNear:
		return q.coll.KNNSearch(ctx, q.at, q.k, opt)
	case q.text != "":
		hits, err := q.coll.TextSearch(ctx, q.text, q.k)
		if err != nil {
			return nil, err
		}
		return filterHits(hits, q.fields), nil
	default:
		return nil, ErrEmptyQuery
	}
}

// Stream runs the query and yields its hits one by one. A query failure
// yields a single zero hit with the error.
func (q Query[K, V]) Stream(ctx context.Context) iter.Seq2[Hit[K, V], error] {
	return func(yield func(Hit[K, V], error) bool) {
		hits, err := q.Execute(ctx)
		if err != nil {
			var zero Hit[K, V]
			yield(zero, err)
			return
		}
		for _, h := range hits {
			if !yield(h, nil) {
				return
			}
		}
	}
}

// First runs the query and returns its best hit, or ErrNotFound when
// nothing matches within the k bound.
func (q Query[K, V]) First(ctx context.Context) (Hit[K, V], error) {
	hits, err := q.Execute(ctx)
	if err != nil {
		var zero Hit[K, V]
		return zero, err
	}
	if len(hits) == 0 {
		var zero Hit[K, V]
		return zero, ErrNotFound
	}
	return hits[0], nil
}

// Count runs the query and returns the number of hits, bounded by k.
func (q Query[K, V]) Count(ctx context.Context) (int, error) {
	hits, err := q.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(hits), nil
}

// Exists reports whether the query matches anything within the k bound.
func (q Query[K, V]) Exists(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
