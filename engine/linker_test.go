package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/index/mem"
)

func TestLinkByKNNNearest(t *testing.T) {
	c := splitCities(t, 2)

	points := []geom.Point{
		{Lon: 13.0, Lat: 52.0}, // near berlin
		{Lon: -9.0, Lat: 39.0}, // near lisbon
		{Lon: 11.5, Lat: 48.0}, // near munich
	}

	out, err := LinkByKNN(context.Background(), c, points, 1)
	require.NoError(t, err)
	require.Len(t, out, len(points))

	assert.Equal(t, []string{"berlin"}, hitKeys(out[0]))
	assert.Equal(t, []string{"lisbon"}, hitKeys(out[1]))
	assert.Equal(t, []string{"munich"}, hitKeys(out[2]))
}

// Linking a batch of points is the same as issuing one nearest-neighbor
// query per point.
func TestLinkByKNNMatchesSequentialQueries(t *testing.T) {
	ctx := context.Background()
	c := splitCities(t, 3)

	points := []geom.Point{
		{Lon: 13.0, Lat: 52.0},
		{Lon: -9.0, Lat: 39.0},
		{Lon: 11.5, Lat: 48.0},
		{Lon: 0, Lat: 0},
	}

	out, err := LinkByKNN(ctx, c, points, 3)
	require.NoError(t, err)
	require.Len(t, out, len(points))

	for i, p := range points {
		want, err := c.KNN(ctx, p, 3, matchAll)
		require.NoError(t, err)
		assert.Equal(t, want, out[i], "point %d", i)
	}
}

func TestLinkByKNNResultOrder(t *testing.T) {
	c := splitCities(t, 2)

	out, err := LinkByKNN(context.Background(), c, []geom.Point{{Lon: 13.0, Lat: 52.0}}, 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0], 3)

	assert.Equal(t, "berlin", out[0][0].Key)
	for i := 1; i < len(out[0]); i++ {
		assert.LessOrEqual(t, out[0][i-1].DistanceKm, out[0][i].DistanceKm)
	}
}

func TestLinkByKNNEmptyPoints(t *testing.T) {
	c := splitCities(t, 2)

	out, err := LinkByKNN(context.Background(), c, nil, 2)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLinkByKNNDegenerateK(t *testing.T) {
	c := splitCities(t, 2)

	out, err := LinkByKNN(context.Background(), c, []geom.Point{{Lon: 13.0, Lat: 52.0}}, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0])
	assert.Empty(t, out[0])
}

func TestLinkByKNNZeroPartitions(t *testing.T) {
	c, err := NewCoordinator[string, cityInfo](nil)
	require.NoError(t, err)
	defer c.Close()

	out, err := LinkByKNN(context.Background(), c, []geom.Point{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}}, 3)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, hits := range out {
		require.NotNil(t, hits)
		assert.Empty(t, hits)
	}
}

func TestLinkByKNNBoundedByCorpus(t *testing.T) {
	c := splitCities(t, 3)

	out, err := LinkByKNN(context.Background(), c, []geom.Point{{Lon: 13.0, Lat: 52.0}}, 100)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Len(t, out[0], len(allCityNames))
}

func TestLinkByKNNPartitionFailure(t *testing.T) {
	errBoom := errors.New("boom")

	good := mem.NewBuilder[string, cityInfo](cityShape, cityFields)
	require.NoError(t, good.Add("berlin", cityInfos["berlin"]))

	c, err := NewCoordinator([]index.Local[string, cityInfo]{
		good.Build(),
		&failingLocal[string, cityInfo]{err: errBoom},
	})
	require.NoError(t, err)
	defer c.Close()

	_, err = LinkByKNN(context.Background(), c, []geom.Point{{Lon: 13.0, Lat: 52.0}}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	var pe *PartitionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Partition)
}

func TestLinkByKNNClosed(t *testing.T) {
	c := splitCities(t, 2)
	require.NoError(t, c.Close())

	_, err := LinkByKNN(context.Background(), c, []geom.Point{{Lon: 1, Lat: 1}}, 1)
	assert.ErrorIs(t, err, ErrClosed)
}
