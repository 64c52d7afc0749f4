package geom

import (
	"fmt"
	"strings"

	"github.com/golang/geo/s2"
)

// Predicate is a spatial relation evaluated between a query shape and a
// document shape.
type Predicate int

// Supported spatial predicates.
const (
	// Intersects matches documents sharing at least one position with the
	// query shape.
	Intersects Predicate = iota
	// Contains matches documents fully inside the query shape.
	Contains
	// Within matches documents that fully contain the query shape.
	Within
	// Disjoint matches documents sharing no position with the query shape.
	Disjoint
)

// Valid reports whether p is one of the supported predicates.
func (p Predicate) Valid() bool {
	switch p {
	case Intersects, Contains, Within, Disjoint:
		return true
	default:
		return false
	}
}

// String returns the canonical lower-case predicate name.
func (p Predicate) String() string {
	switch p {
	case Intersects:
		return "intersects"
	case Contains:
		return "contains"
	case Within:
		return "within"
	case Disjoint:
		return "disjoint"
	default:
		return fmt.Sprintf("predicate(%d)", int(p))
	}
}

// ParsePredicate parses a case-insensitive predicate name.
func ParsePredicate(s string) (Predicate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intersects":
		return Intersects, nil
	case "contains":
		return Contains, nil
	case "within":
		return Within, nil
	case "disjoint":
		return Disjoint, nil
	default:
		return 0, fmt.Errorf("unknown spatial predicate %q", s)
	}
}

// coverer generates the cell coverings used both for indexed documents and
// for query regions. Leaf cells stay available so point documents index to a
// single cell.
var coverer = &s2.RegionCoverer{
	MinLevel: 0,
	MaxLevel: 30,
	LevelMod: 1,
	MaxCells: 8,
}

// Covering returns the normalized cell covering of a shape.
func Covering(s Shape) s2.CellUnion {
	return coverer.Covering(s.Region())
}

// Matches reports whether document shape d satisfies the predicate relative
// to query shape q.
//
// Relations involving a point on either side are exact. Relations between
// two extended shapes of the same kind are exact. Mixed extended-shape pairs
// are evaluated on their cell coverings, the same grid approximation the
// local index uses for candidate generation.
func (p Predicate) Matches(q, d Shape) bool {
	switch p {
	case Intersects:
		return shapesIntersect(q, d)
	case Contains:
		return shapeContains(q, d)
	case Within:
		return shapeContains(d, q)
	case Disjoint:
		return !shapesIntersect(q, d)
	default:
		return false
	}
}

func shapesIntersect(a, b Shape) bool {
	if pb, ok := b.(Point); ok {
		return a.ContainsPoint(pb)
	}
	if pa, ok := a.(Point); ok {
		return b.ContainsPoint(pa)
	}
	switch x := a.(type) {
	case Rect:
		if y, ok := b.(Rect); ok {
			return x.r.Intersects(y.r)
		}
	case Circle:
		if y, ok := b.(Circle); ok {
			return HaversineKm(x.Center, y.Center) <= x.RadiusKm+y.RadiusKm
		}
	case *Geometry:
		if y, ok := b.(*Geometry); ok && x.poly != nil && y.poly != nil {
			return x.poly.Intersects(y.poly)
		}
	}
	ca, cb := Covering(a), Covering(b)
	return ca.Intersects(cb)
}

func shapeContains(outer, inner Shape) bool {
	if pi, ok := inner.(Point); ok {
		return outer.ContainsPoint(pi)
	}
	if _, ok := outer.(Point); ok {
		// A point contains nothing but an equal point, handled above.
		return false
	}
	switch x := outer.(type) {
	case Rect:
		if y, ok := inner.(Rect); ok {
			return x.r.Contains(y.r)
		}
	case Circle:
		if y, ok := inner.(Circle); ok {
			return HaversineKm(x.Center, y.Center)+y.RadiusKm <= x.RadiusKm
		}
	case *Geometry:
		if y, ok := inner.(*Geometry); ok && x.poly != nil && y.poly != nil {
			return x.poly.Contains(y.poly)
		}
	}
	co, ci := Covering(outer), Covering(inner)
	return co.Contains(ci)
}
