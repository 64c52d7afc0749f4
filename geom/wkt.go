package geom

import (
	"errors"
	"fmt"

	"github.com/golang/geo/s2"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// ParseError reports a shape description that could not be turned into a
// usable geometry.
type ParseError struct {
	WKT string
	Err error
}

// Error returns the error message, truncating oversized WKT input.
func (e *ParseError) Error() string {
	s := e.WKT
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return fmt.Sprintf("malformed shape %q: %v", s, e.Err)
}

// Unwrap returns the underlying parse failure.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseWKT parses a well-known-text geometry into a Shape. POINT input
// yields a Point; LINESTRING, POLYGON and the MULTI variants yield a
// Geometry. Geometry collections are not supported.
func ParseWKT(s string) (Shape, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, &ParseError{WKT: s, Err: err}
	}
	shape, err := fromGeomT(s, g)
	if err != nil {
		return nil, &ParseError{WKT: s, Err: err}
	}
	return shape, nil
}

// MustParseWKT is ParseWKT, panicking on error. Use it for literals in tests
// and examples.
func MustParseWKT(s string) Shape {
	shape, err := ParseWKT(s)
	if err != nil {
		panic(err)
	}
	return shape
}

func fromGeomT(src string, g gogeom.T) (Shape, error) {
	if g.Empty() {
		return nil, errors.New("empty geometry")
	}

	switch t := g.(type) {
	case *gogeom.Point:
		p := Point{Lon: t.X(), Lat: t.Y()}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil

	case *gogeom.LineString:
		pts, err := coordsToPoints(t.Coords())
		if err != nil {
			return nil, err
		}
		if len(pts) < 2 {
			return nil, errors.New("line string needs at least 2 vertices")
		}
		line := polylineOf(pts)
		return &Geometry{
			wkt:      src,
			region:   line,
			pts:      pts,
			centroid: vertexCentroid(pts),
		}, nil

	case *gogeom.MultiLineString:
		var regions unionRegion
		var pts []Point
		for i := 0; i < t.NumLineStrings(); i++ {
			lp, err := coordsToPoints(t.LineString(i).Coords())
			if err != nil {
				return nil, err
			}
			if len(lp) < 2 {
				return nil, errors.New("line string needs at least 2 vertices")
			}
			regions = append(regions, polylineOf(lp))
			pts = append(pts, lp...)
		}
		return &Geometry{
			wkt:      src,
			region:   regions,
			pts:      pts,
			centroid: vertexCentroid(pts),
		}, nil

	case *gogeom.MultiPoint:
		pts, err := coordsToPoints(t.Coords())
		if err != nil {
			return nil, err
		}
		regions := make(unionRegion, len(pts))
		for i, p := range pts {
			regions[i] = s2.CapFromPoint(p.S2())
		}
		return &Geometry{
			wkt:      src,
			region:   regions,
			pts:      pts,
			pointSet: true,
			centroid: vertexCentroid(pts),
		}, nil

	case *gogeom.Polygon:
		loops, pts, err := polygonLoops(t)
		if err != nil {
			return nil, err
		}
		return polygonShape(src, loops, pts)

	case *gogeom.MultiPolygon:
		var loops []*s2.Loop
		var pts []Point
		for i := 0; i < t.NumPolygons(); i++ {
			pl, pp, err := polygonLoops(t.Polygon(i))
			if err != nil {
				return nil, err
			}
			loops = append(loops, pl...)
			pts = append(pts, pp...)
		}
		return polygonShape(src, loops, pts)

	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}

// polygonLoops converts a go-geom polygon's rings to normalized s2 loops.
// Ring orientation in WKT input varies, so every loop is normalized to
// enclose less than half the sphere; nested loops become holes.
func polygonLoops(p *gogeom.Polygon) ([]*s2.Loop, []Point, error) {
	var loops []*s2.Loop
	var all []Point
	for i := 0; i < p.NumLinearRings(); i++ {
		pts, err := coordsToPoints(trimClosing(p.LinearRing(i).Coords()))
		if err != nil {
			return nil, nil, err
		}
		if len(pts) < 3 {
			return nil, nil, errors.New("polygon ring needs at least 3 distinct vertices")
		}
		s2pts := make([]s2.Point, len(pts))
		for j, pt := range pts {
			s2pts[j] = pt.S2()
		}
		loop := s2.LoopFromPoints(s2pts)
		loop.Normalize()
		if err := loop.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid polygon ring: %w", err)
		}
		loops = append(loops, loop)
		all = append(all, pts...)
	}
	return loops, all, nil
}

func polygonShape(src string, loops []*s2.Loop, pts []Point) (Shape, error) {
	poly := s2.PolygonFromLoops(loops)
	if err := poly.Validate(); err != nil {
		return nil, fmt.Errorf("invalid polygon: %w", err)
	}
	return &Geometry{
		wkt:      src,
		region:   poly,
		poly:     poly,
		pts:      pts,
		centroid: vertexCentroid(pts),
	}, nil
}

func coordsToPoints(coords []gogeom.Coord) ([]Point, error) {
	pts := make([]Point, 0, len(coords))
	for _, c := range coords {
		p := Point{Lon: c.X(), Lat: c.Y()}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// trimClosing drops the repeated closing vertex of a WKT ring; s2 loops are
// implicitly closed.
func trimClosing(coords []gogeom.Coord) []gogeom.Coord {
	if n := len(coords); n > 1 && coords[0].X() == coords[n-1].X() && coords[0].Y() == coords[n-1].Y() {
		return coords[:n-1]
	}
	return coords
}

func polylineOf(pts []Point) *s2.Polyline {
	s2pts := make([]s2.Point, len(pts))
	for i, p := range pts {
		s2pts[i] = p.S2()
	}
	line := s2.Polyline(s2pts)
	return &line
}
