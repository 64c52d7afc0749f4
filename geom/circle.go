package geom

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// Circle is a great-circle disk: all positions within RadiusKm of Center.
type Circle struct {
	Center   Point
	RadiusKm float64
}

// NewCircle returns a circle of the given radius around center.
func NewCircle(center Point, radiusKm float64) Circle {
	return Circle{Center: center, RadiusKm: radiusKm}
}

// Region returns the circle as a spherical cap.
func (c Circle) Region() s2.Region {
	return s2.CapFromCenterAngle(c.Center.S2(), kmToAngle(c.RadiusKm))
}

// Centroid returns the circle's center.
func (c Circle) Centroid() Point {
	return c.Center
}

// ContainsPoint reports whether p lies within the radius (border inclusive).
func (c Circle) ContainsPoint(p Point) bool {
	return HaversineKm(c.Center, p) <= c.RadiusKm
}

func (c Circle) String() string {
	return fmt.Sprintf("CIRCLE (%g %g, %g km)", c.Center.Lon, c.Center.Lat, c.RadiusKm)
}
