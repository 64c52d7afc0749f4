package geoshard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoshard/geoshard"
	"github.com/geoshard/geoshard/geom"
)

type order struct {
	ID  string
	Pos geom.Point
}

var testOrders = []order{
	{ID: "o-1", Pos: geom.Point{Lon: 13.0, Lat: 52.0}},
	{ID: "o-2", Pos: geom.Point{Lon: -9.0, Lat: 39.0}},
	{ID: "o-3", Pos: geom.Point{Lon: 11.5, Lat: 48.0}},
}

func orderPos(o order) geom.Point { return o.Pos }

func TestLink(t *testing.T) {
	coll := newCities(t, 2)

	linked, err := geoshard.Link(context.Background(), coll, testOrders, orderPos, 1)
	require.NoError(t, err)
	require.Len(t, linked, 3)

	assert.Equal(t, "o-1", linked[0].Entity.ID)
	assert.Equal(t, []string{"berlin"}, hitKeys(linked[0].Hits))
	assert.Equal(t, "o-2", linked[1].Entity.ID)
	assert.Equal(t, []string{"lisbon"}, hitKeys(linked[1].Hits))
	assert.Equal(t, "o-3", linked[2].Entity.ID)
	assert.Equal(t, []string{"munich"}, hitKeys(linked[2].Hits))
}

func TestLinkMatchesKNNSearch(t *testing.T) {
	coll := newCities(t, 3)
	ctx := context.Background()

	linked, err := geoshard.Link(ctx, coll, testOrders, orderPos, 3)
	require.NoError(t, err)

	for i, o := range testOrders {
		want, err := coll.KNNSearch(ctx, o.Pos, 3)
		require.NoError(t, err)
		assert.Equal(t, want, linked[i].Hits, "order %s", o.ID)
	}
}

func TestLinkResultOrder(t *testing.T) {
	coll := newCities(t, 2)

	linked, err := geoshard.Link(context.Background(), coll, testOrders[:1], orderPos, 4)
	require.NoError(t, err)

	hits := linked[0].Hits
	require.Len(t, hits, 4)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].DistanceKm, hits[i].DistanceKm)
	}
}

func TestLinkEmptyEntities(t *testing.T) {
	coll := newCities(t, 2)

	linked, err := geoshard.Link(context.Background(), coll, nil, orderPos, 2)
	require.NoError(t, err)
	assert.NotNil(t, linked)
	assert.Empty(t, linked)
}

func TestLinkNilPositionFunc(t *testing.T) {
	coll := newCities(t, 2)

	_, err := geoshard.Link[order](context.Background(), coll, testOrders, nil, 2)
	require.ErrorIs(t, err, geoshard.ErrNilPositionFunc)
}

func TestLinkDegenerateK(t *testing.T) {
	coll := newCities(t, 2)

	linked, err := geoshard.Link(context.Background(), coll, testOrders, orderPos, 0)
	require.NoError(t, err)
	for _, l := range linked {
		assert.NotNil(t, l.Hits)
		assert.Empty(t, l.Hits)
	}
}

func TestLinkBoundedByCorpus(t *testing.T) {
	coll := newCities(t, 3)

	linked, err := geoshard.Link(context.Background(), coll, testOrders[:1], orderPos, 100)
	require.NoError(t, err)
	assert.Len(t, linked[0].Hits, 7)
}

func TestLinkClosed(t *testing.T) {
	coll := newCities(t, 2)
	require.NoError(t, coll.Close())

	_, err := geoshard.Link(context.Background(), coll, testOrders, orderPos, 1)
	require.ErrorIs(t, err, geoshard.ErrClosed)
}
