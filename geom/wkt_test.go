package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWKTPoint(t *testing.T) {
	shape, err := ParseWKT("POINT (13.405 52.52)")
	require.NoError(t, err)

	p, ok := shape.(Point)
	require.True(t, ok)
	assert.InDelta(t, 13.405, p.Lon, 1e-9)
	assert.InDelta(t, 52.52, p.Lat, 1e-9)
}

func TestParseWKTPolygon(t *testing.T) {
	shape, err := ParseWKT("POLYGON ((0 0, 4 0, 4 4, 0 4, 0 0))")
	require.NoError(t, err)

	assert.True(t, shape.ContainsPoint(NewPoint(2, 2)))
	assert.False(t, shape.ContainsPoint(NewPoint(5, 2)))
	assert.Equal(t, "POLYGON ((0 0, 4 0, 4 4, 0 4, 0 0))", shape.String())
}

func TestParseWKTPolygonWithHole(t *testing.T) {
	shape, err := ParseWKT("POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0), (4 4, 6 4, 6 6, 4 6, 4 4))")
	require.NoError(t, err)

	assert.True(t, shape.ContainsPoint(NewPoint(2, 2)))
	assert.False(t, shape.ContainsPoint(NewPoint(5, 5)), "hole interior is outside")
}

func TestParseWKTLineString(t *testing.T) {
	shape, err := ParseWKT("LINESTRING (0 0, 10 0)")
	require.NoError(t, err)

	// Lines have zero area and contain no point.
	assert.False(t, shape.ContainsPoint(NewPoint(5, 0)))
	c := shape.Centroid()
	assert.InDelta(t, 5, c.Lon, 1e-6)
}

func TestParseWKTMultiPoint(t *testing.T) {
	shape, err := ParseWKT("MULTIPOINT ((1 1), (2 2))")
	require.NoError(t, err)

	assert.True(t, shape.ContainsPoint(NewPoint(1, 1)))
	assert.True(t, shape.ContainsPoint(NewPoint(2, 2)))
	assert.False(t, shape.ContainsPoint(NewPoint(1, 2)))
}

func TestParseWKTErrors(t *testing.T) {
	tests := []struct {
		name string
		wkt  string
	}{
		{name: "garbage", wkt: "POINT OF NO RETURN"},
		{name: "truncated", wkt: "POLYGON ((0 0, 1 1"},
		{name: "out of range", wkt: "POINT (200 95)"},
		{name: "collection", wkt: "GEOMETRYCOLLECTION (POINT (1 1))"},
		{name: "degenerate ring", wkt: "POLYGON ((0 0, 1 1, 0 0))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWKT(tt.wkt)
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wkt, pe.WKT)
		})
	}
}

func TestMustParseWKTPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseWKT("nope") })
}
