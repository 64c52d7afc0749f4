package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Rect is a latitude/longitude rectangle. The longitude interval runs
// eastward from the low corner to the high corner, so a rectangle may span
// the antimeridian.
type Rect struct {
	r s2.Rect
}

// RectFromCorners builds a rectangle from two opposite corners. Latitudes are
// reordered if swapped; longitudes always run eastward from sw.Lon to ne.Lon,
// which makes a rectangle crossing the antimeridian expressible as
// sw.Lon > ne.Lon.
func RectFromCorners(sw, ne Point) Rect {
	latLo := math.Min(sw.Lat, ne.Lat) * math.Pi / 180
	latHi := math.Max(sw.Lat, ne.Lat) * math.Pi / 180
	return Rect{r: s2.Rect{
		Lat: r1.Interval{Lo: latLo, Hi: latHi},
		Lng: s1.IntervalFromEndpoints(sw.Lon*math.Pi/180, ne.Lon*math.Pi/180),
	}}
}

// RectFromCenter builds the bounding rectangle of a circle of the given
// radius around center. Near the poles the longitude span widens to the full
// circle, matching the cap geometry.
func RectFromCenter(center Point, radiusKm float64) Rect {
	cap := s2.CapFromCenterAngle(center.S2(), kmToAngle(radiusKm))
	return Rect{r: cap.RectBound()}
}

// Lo returns the southwest corner.
func (r Rect) Lo() Point {
	lo := r.r.Lo()
	return Point{Lon: lo.Lng.Degrees(), Lat: lo.Lat.Degrees()}
}

// Hi returns the northeast corner.
func (r Rect) Hi() Point {
	hi := r.r.Hi()
	return Point{Lon: hi.Lng.Degrees(), Lat: hi.Lat.Degrees()}
}

// Region returns the underlying s2 rectangle.
func (r Rect) Region() s2.Region {
	return r.r
}

// Centroid returns the rectangle's center.
func (r Rect) Centroid() Point {
	c := r.r.Center()
	return Point{Lon: c.Lng.Degrees(), Lat: c.Lat.Degrees()}
}

// ContainsPoint reports whether p lies inside the rectangle (borders
// inclusive).
func (r Rect) ContainsPoint(p Point) bool {
	return r.r.ContainsLatLng(p.LatLng())
}

func (r Rect) String() string {
	lo, hi := r.Lo(), r.Hi()
	return fmt.Sprintf("RECT (%g %g, %g %g)", lo.Lon, lo.Lat, hi.Lon, hi.Lat)
}
