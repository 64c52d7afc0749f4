package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectFromCorners(t *testing.T) {
	r := RectFromCorners(NewPoint(5, 45), NewPoint(15, 55))

	assert.True(t, r.ContainsPoint(NewPoint(10, 50)))
	assert.True(t, r.ContainsPoint(NewPoint(5, 45)), "border is inclusive")
	assert.False(t, r.ContainsPoint(NewPoint(4.9, 50)))
	assert.False(t, r.ContainsPoint(NewPoint(10, 55.1)))
}

func TestRectFromCornersSwappedLatitudes(t *testing.T) {
	r := RectFromCorners(NewPoint(5, 55), NewPoint(15, 45))
	assert.True(t, r.ContainsPoint(NewPoint(10, 50)))
}

func TestRectCrossesAntimeridian(t *testing.T) {
	r := RectFromCorners(NewPoint(170, -10), NewPoint(-170, 10))

	assert.True(t, r.ContainsPoint(NewPoint(180, 0)))
	assert.True(t, r.ContainsPoint(NewPoint(-175, 5)))
	assert.True(t, r.ContainsPoint(NewPoint(175, -5)))
	assert.False(t, r.ContainsPoint(NewPoint(0, 0)))
	assert.False(t, r.ContainsPoint(NewPoint(160, 0)))
}

func TestRectFromCenter(t *testing.T) {
	r := RectFromCenter(NewPoint(13.4, 52.5), 100)

	assert.True(t, r.ContainsPoint(NewPoint(13.4, 52.5)))
	// 100 km is under one degree of latitude, so 2 degrees away is outside.
	assert.False(t, r.ContainsPoint(NewPoint(13.4, 54.5)))
	// Points just inside the radius are inside the bounding rectangle too.
	assert.True(t, r.ContainsPoint(NewPoint(13.4, 53.3)))
}

func TestRectFromCenterNearPole(t *testing.T) {
	// A circle around a point near the pole spans all longitudes.
	r := RectFromCenter(NewPoint(0, 89.5), 200)
	assert.True(t, r.ContainsPoint(NewPoint(180, 89.7)))
}

func TestRectCentroid(t *testing.T) {
	r := RectFromCorners(NewPoint(0, 0), NewPoint(10, 20))
	c := r.Centroid()
	assert.InDelta(t, 5, c.Lon, 1e-9)
	assert.InDelta(t, 10, c.Lat, 1e-9)
}
