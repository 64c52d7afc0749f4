package geom

import (
	"github.com/golang/geo/s2"
)

// Shape is a geometry usable both as a query region and as an indexed
// document geometry. Point, Rect, Circle and Geometry implement it.
type Shape interface {
	// Region returns the s2 region used for cell coverings and grid tests.
	Region() s2.Region

	// Centroid returns the representative point used for distance ranking.
	Centroid() Point

	// ContainsPoint reports whether the shape contains the given position.
	ContainsPoint(p Point) bool

	String() string
}

// Compile-time checks that all shape kinds satisfy the interface.
var (
	_ Shape = Point{}
	_ Shape = Rect{}
	_ Shape = Circle{}
	_ Shape = (*Geometry)(nil)
)

// Geometry is a shape parsed from WKT: a polygon (with optional holes), a
// line string, a multipoint or their multi-variants. Points parse to the
// plain Point shape instead.
type Geometry struct {
	wkt      string
	region   s2.Region
	poly     *s2.Polygon // non-nil when the geometry is polygonal
	pts      []Point     // vertices, used for multipoint membership
	pointSet bool        // true when the geometry is a (multi)point set
	centroid Point
}

// Region returns the s2 region of the parsed geometry.
func (g *Geometry) Region() s2.Region {
	return g.region
}

// Centroid returns the normalized vertex centroid. It is a representative
// point for ranking, not an exact area centroid.
func (g *Geometry) Centroid() Point {
	return g.centroid
}

// ContainsPoint reports whether the geometry contains p. Polygons test
// point-in-polygon, point sets test membership; line strings contain no
// point (they have zero area).
func (g *Geometry) ContainsPoint(p Point) bool {
	if g.poly != nil {
		return g.poly.ContainsPoint(p.S2())
	}
	if g.pointSet {
		sp := p.S2()
		for _, v := range g.pts {
			if v.S2().ApproxEqual(sp) {
				return true
			}
		}
	}
	return false
}

// String returns the original WKT text.
func (g *Geometry) String() string {
	return g.wkt
}

// vertexCentroid returns the spherical normalization of the vertex vector
// sum. Falls back to the first vertex for degenerate (antipodal) sums.
func vertexCentroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var sum s2.Point
	for _, p := range pts {
		sp := p.S2()
		sum.X += sp.X
		sum.Y += sp.Y
		sum.Z += sp.Z
	}
	if sum.Norm() == 0 {
		return pts[0]
	}
	ll := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return Point{Lon: ll.Lng.Degrees(), Lat: ll.Lat.Degrees()}
}

// unionRegion is the union of several s2 regions. ContainsCell is
// per-member, so containment split across members is reported as false;
// coverings remain correct because IntersectsCell is a true union.
type unionRegion []s2.Region

func (u unionRegion) CapBound() s2.Cap {
	return u.RectBound().CapBound()
}

func (u unionRegion) RectBound() s2.Rect {
	r := s2.EmptyRect()
	for _, m := range u {
		r = r.Union(m.RectBound())
	}
	return r
}

func (u unionRegion) ContainsCell(c s2.Cell) bool {
	for _, m := range u {
		if m.ContainsCell(c) {
			return true
		}
	}
	return false
}

func (u unionRegion) IntersectsCell(c s2.Cell) bool {
	for _, m := range u {
		if m.IntersectsCell(c) {
			return true
		}
	}
	return false
}

func (u unionRegion) ContainsPoint(p s2.Point) bool {
	for _, m := range u {
		if m.ContainsPoint(p) {
			return true
		}
	}
	return false
}

func (u unionRegion) CellUnionBound() []s2.CellID {
	var ids s2.CellUnion
	for _, m := range u {
		ids = append(ids, m.CellUnionBound()...)
	}
	ids.Normalize()
	return ids
}
