package distance

import (
	"testing"

	"github.com/geoshard/geoshard/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFunc(t *testing.T) {
	for _, m := range []Metric{Haversine, Equirectangular} {
		fn, err := NewFunc(m)
		require.NoError(t, err, m.String())
		assert.NotNil(t, fn)
	}

	_, err := NewFunc(Metric(99))
	assert.Error(t, err)
}

func TestEquirectangularApproximatesHaversine(t *testing.T) {
	hav, err := NewFunc(Haversine)
	require.NoError(t, err)
	eqr, err := NewFunc(Equirectangular)
	require.NoError(t, err)

	pairs := [][2]geom.Point{
		{geom.NewPoint(13.405, 52.52), geom.NewPoint(9.9937, 53.5511)},
		{geom.NewPoint(2.35, 48.85), geom.NewPoint(2.36, 48.86)},
		{geom.NewPoint(179.9, 10), geom.NewPoint(-179.9, 10.1)},
	}

	for _, pair := range pairs {
		h := hav(pair[0], pair[1])
		e := eqr(pair[0], pair[1])
		assert.InEpsilon(t, h, e, 0.01, "within 1%% at short range")
	}
}

func TestMetricString(t *testing.T) {
	assert.Equal(t, "Haversine", Haversine.String())
	assert.Equal(t, "Equirectangular", Equirectangular.String())
	assert.Equal(t, "Unknown", Metric(42).String())
}
