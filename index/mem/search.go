package mem

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/lexical"
	"github.com/geoshard/geoshard/topk"
)

// checkEvery is the number of documents scanned between context checks.
const checkEvery = 1024

// KNN returns the k documents nearest to at, restricted to those matching
// text, nearest first. Extended document geometries rank by their
// representative point.
func (x *Index[K, V]) KNN(ctx context.Context, at geom.Point, k int, text lexical.Query) ([]index.Hit[K, V], error) {
	if x.closed.Load() {
		return nil, index.ErrClosed
	}
	if err := at.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 || len(x.keys) == 0 {
		return []index.Hit[K, V]{}, nil
	}

	restrict := x.text.Candidates(text)
	if restrict != nil && restrict.IsEmpty() {
		return []index.Hit[K, V]{}, nil
	}

	agg := topk.New(k, index.WorseHit[K, V])
	add := func(ord uint32) {
		d := x.opts.Distance(at, x.centers[ord])
		agg.Add(x.hit(ord, 1/(1+d), d))
	}

	if restrict != nil {
		it := restrict.Iterator()
		for n := 0; it.HasNext(); n++ {
			if n%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			add(it.Next())
		}
		return agg.Items(), nil
	}

	for ord := range x.keys {
		if ord%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		add(uint32(ord))
	}
	return agg.Items(), nil
}

// Circle returns documents whose geometry satisfies pred against the circle
// of radiusKm around center.
func (x *Index[K, V]) Circle(ctx context.Context, center geom.Point, radiusKm float64, k int, pred geom.Predicate, text lexical.Query) ([]index.Hit[K, V], error) {
	if x.closed.Load() {
		return nil, index.ErrClosed
	}
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if radiusKm < 0 || math.IsNaN(radiusKm) {
		return nil, fmt.Errorf("invalid search radius %gkm", radiusKm)
	}
	q := geom.Circle{Center: center, RadiusKm: radiusKm}
	return x.predicateScan(ctx, q, center, k, pred, text)
}

// Rect returns documents whose geometry satisfies pred against box.
func (x *Index[K, V]) Rect(ctx context.Context, box geom.Rect, k int, pred geom.Predicate, text lexical.Query) ([]index.Hit[K, V], error) {
	return x.predicateScan(ctx, box, box.Centroid(), k, pred, text)
}

// Spatial returns documents whose geometry satisfies pred against an
// arbitrary query shape.
func (x *Index[K, V]) Spatial(ctx context.Context, shape geom.Shape, k int, pred geom.Predicate, text lexical.Query) ([]index.Hit[K, V], error) {
	if x.closed.Load() {
		return nil, index.ErrClosed
	}
	if shape == nil {
		return nil, fmt.Errorf("nil query shape")
	}
	return x.predicateScan(ctx, shape, shape.Centroid(), k, pred, text)
}

// Text returns the k documents most relevant to the text query. Match-all
// scores every document equally, so results order by key.
func (x *Index[K, V]) Text(ctx context.Context, query lexical.Query, k int) ([]index.Hit[K, V], error) {
	if x.closed.Load() {
		return nil, index.ErrClosed
	}
	if k <= 0 || len(x.keys) == 0 {
		return []index.Hit[K, V]{}, nil
	}

	agg := topk.New(k, index.WorseHit[K, V])

	if query.MatchAll() {
		for ord := range x.keys {
			if ord%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			agg.Add(x.hit(uint32(ord), 1, 0))
		}
		return agg.Items(), nil
	}

	n := 0
	for ord, score := range x.text.Scores(query) {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		n++
		agg.Add(x.hit(ord, score, 0))
	}
	return agg.Items(), nil
}

// predicateScan evaluates pred between the query shape and every candidate
// document: cell-covering candidates first, exact geometry on the survivors.
// Disjoint inverts the candidate set, since a document sharing no covering
// cell with the query cannot intersect it.
func (x *Index[K, V]) predicateScan(ctx context.Context, q geom.Shape, at geom.Point, k int, pred geom.Predicate, text lexical.Query) ([]index.Hit[K, V], error) {
	if x.closed.Load() {
		return nil, index.ErrClosed
	}
	if !pred.Valid() {
		return nil, fmt.Errorf("unknown spatial predicate %v", pred)
	}
	if k <= 0 || len(x.keys) == 0 {
		return []index.Hit[K, V]{}, nil
	}

	restrict := x.text.Candidates(text)
	if restrict != nil && restrict.IsEmpty() {
		return []index.Hit[K, V]{}, nil
	}

	agg := topk.New(k, index.WorseHit[K, V])
	add := func(ord uint32) {
		agg.Add(x.hit(ord, 1, x.opts.Distance(at, x.centers[ord])))
	}

	candidates := x.spatialCandidates(q)

	if pred == geom.Disjoint {
		for ord := range x.keys {
			if ord%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			o := uint32(ord)
			if restrict != nil && !restrict.Contains(o) {
				continue
			}
			if candidates.Contains(o) && !pred.Matches(q, x.shapes[ord]) {
				continue
			}
			add(o)
		}
		return agg.Items(), nil
	}

	it := candidates.Iterator()
	for n := 0; it.HasNext(); n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ord := it.Next()
		if restrict != nil && !restrict.Contains(ord) {
			continue
		}
		if !pred.Matches(q, x.shapes[ord]) {
			continue
		}
		add(ord)
	}
	return agg.Items(), nil
}

// spatialCandidates returns every document whose covering shares a cell
// lineage with the query covering: for each query cell, indexed descendants
// come from a range scan over the sorted cell list and indexed ancestors
// from the parent walk.
func (x *Index[K, V]) spatialCandidates(q geom.Shape) *roaring.Bitmap {
	out := roaring.New()

	for _, qc := range geom.Covering(q) {
		lo, hi := qc.RangeMin(), qc.RangeMax()
		i := sort.Search(len(x.cellIDs), func(i int) bool { return x.cellIDs[i] >= lo })
		for ; i < len(x.cellIDs) && x.cellIDs[i] <= hi; i++ {
			out.Or(x.cells[x.cellIDs[i]])
		}

		for level := qc.Level() - 1; level >= 0; level-- {
			if bm, ok := x.cells[qc.Parent(level)]; ok {
				out.Or(bm)
			}
		}
	}

	return out
}

func (x *Index[K, V]) hit(ord uint32, score, distanceKm float64) index.Hit[K, V] {
	return index.Hit[K, V]{
		Key:        x.keys[ord],
		Value:      x.vals[ord],
		Score:      score,
		DistanceKm: distanceKm,
		Fields:     x.fields[ord],
	}
}
