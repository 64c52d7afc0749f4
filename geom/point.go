package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean earth radius used for all great-circle math.
const EarthRadiusKm = 6371.0

// Point is a geographic position in degrees longitude/latitude.
type Point struct {
	Lon float64
	Lat float64
}

// NewPoint returns a point at the given longitude and latitude in degrees.
func NewPoint(lon, lat float64) Point {
	return Point{Lon: lon, Lat: lat}
}

// CoordinateError reports a longitude/latitude pair outside the valid range.
type CoordinateError struct {
	Lon float64
	Lat float64
}

// Error returns the error message for out-of-range coordinates.
func (e *CoordinateError) Error() string {
	return fmt.Sprintf("coordinates out of range: lon=%g lat=%g", e.Lon, e.Lat)
}

// Validate checks that the point lies within [-180,180] x [-90,90] and that
// neither coordinate is NaN or infinite.
func (p Point) Validate() error {
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return &CoordinateError{Lon: p.Lon, Lat: p.Lat}
	}
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return &CoordinateError{Lon: p.Lon, Lat: p.Lat}
	}
	return nil
}

// LatLng converts the point to an s2.LatLng.
func (p Point) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// S2 converts the point to a unit-sphere s2.Point.
func (p Point) S2() s2.Point {
	return s2.PointFromLatLng(p.LatLng())
}

// Region returns the point as a degenerate spherical cap.
func (p Point) Region() s2.Region {
	return s2.CapFromPoint(p.S2())
}

// Centroid returns the point itself.
func (p Point) Centroid() Point {
	return p
}

// ContainsPoint reports whether q is the same position, up to unit-vector
// tolerance.
func (p Point) ContainsPoint(q Point) bool {
	return p.S2().ApproxEqual(q.S2())
}

func (p Point) String() string {
	return fmt.Sprintf("POINT (%g %g)", p.Lon, p.Lat)
}

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// kmToAngle converts a surface distance to the subtended central angle.
func kmToAngle(km float64) s1.Angle {
	return s1.Angle(km / EarthRadiusKm)
}
