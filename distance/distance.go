// Package distance provides the point-to-point distance metrics used for
// nearest-neighbor ranking.
package distance

import (
	"fmt"
	"math"

	"github.com/geoshard/geoshard/geom"
)

// Func returns the distance between two positions in kilometres.
type Func func(a, b geom.Point) float64

// Metric selects a distance function.
type Metric int

const (
	// Haversine is the exact great-circle distance on the mean sphere.
	Haversine Metric = iota

	// Equirectangular is a fast planar approximation, adequate for small
	// extents away from the poles.
	Equirectangular
)

// String returns a string representation of the Metric.
func (m Metric) String() string {
	switch m {
	case Haversine:
		return "Haversine"
	case Equirectangular:
		return "Equirectangular"
	default:
		return "Unknown"
	}
}

// ParseMetric parses a metric name as produced by String. Snapshot manifests
// record the metric this way, so loading reproduces the saved ranking.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "Haversine":
		return Haversine, nil
	case "Equirectangular":
		return Equirectangular, nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", s)
	}
}

// NewFunc returns the distance function for the metric.
func NewFunc(m Metric) (Func, error) {
	switch m {
	case Haversine:
		return geom.HaversineKm, nil
	case Equirectangular:
		return equirectangularKm, nil
	default:
		return nil, fmt.Errorf("unknown distance metric %d", int(m))
	}
}

// equirectangularKm projects both points onto a plane at their mean latitude
// and measures the Euclidean distance. The longitude delta wraps around the
// antimeridian.
func equirectangularKm(a, b geom.Point) float64 {
	dLon := b.Lon - a.Lon
	if dLon > 180 {
		dLon -= 360
	} else if dLon < -180 {
		dLon += 360
	}
	rad := math.Pi / 180
	midLat := (a.Lat + b.Lat) / 2 * rad
	x := dLon * rad * math.Cos(midLat)
	y := (b.Lat - a.Lat) * rad
	return geom.EarthRadiusKm * math.Sqrt(x*x+y*y)
}
