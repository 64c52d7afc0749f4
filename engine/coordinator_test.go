package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/index/mem"
	"github.com/geoshard/geoshard/lexical"
	"github.com/geoshard/geoshard/metadata"
)

type cityInfo struct {
	Pop     int
	Country string
	Desc    string
}

var cityPoints = map[string]geom.Point{
	"berlin":    {Lon: 13.405, Lat: 52.52},
	"hamburg":   {Lon: 9.993, Lat: 53.551},
	"munich":    {Lon: 11.582, Lat: 48.135},
	"cologne":   {Lon: 6.953, Lat: 50.937},
	"frankfurt": {Lon: 8.682, Lat: 50.110},
	"lisbon":    {Lon: -9.139, Lat: 38.722},
	"porto":     {Lon: -8.611, Lat: 41.150},
}

var cityInfos = map[string]cityInfo{
	"berlin":    {Pop: 3645000, Country: "de", Desc: "capital city on the Spree"},
	"hamburg":   {Pop: 1841000, Country: "de", Desc: "harbor city of the north"},
	"munich":    {Pop: 1472000, Country: "de", Desc: "city near the Alps"},
	"cologne":   {Pop: 1086000, Country: "de", Desc: "cathedral city on the Rhine"},
	"frankfurt": {Pop: 753056, Country: "de", Desc: "banking city on the Main"},
	"lisbon":    {Pop: 545923, Country: "pt", Desc: "coastal capital city"},
	"porto":     {Pop: 237591, Country: "pt", Desc: "coastal city of bridges"},
}

var allCityNames = []string{"berlin", "hamburg", "munich", "cologne", "frankfurt", "lisbon", "porto"}

func cityShape(key string) (geom.Shape, error) {
	p, ok := cityPoints[key]
	if !ok {
		return nil, fmt.Errorf("unknown city %q", key)
	}
	return p, nil
}

func cityFields(v cityInfo) metadata.Document {
	return metadata.Document{
		"pop":     metadata.Int(int64(v.Pop)),
		"country": metadata.String(v.Country),
		"desc":    metadata.String(v.Desc),
	}
}

// splitCities distributes the named cities round-robin over parts
// partitions and wraps them in a Coordinator.
func splitCities(t *testing.T, parts int, optFns ...func(*Options)) *Coordinator[string, cityInfo] {
	t.Helper()

	builders := make([]*mem.Builder[string, cityInfo], parts)
	for i := range builders {
		builders[i] = mem.NewBuilder[string, cityInfo](cityShape, cityFields)
	}
	for i, name := range allCityNames {
		require.NoError(t, builders[i%parts].Add(name, cityInfos[name]))
	}

	locals := make([]index.Local[string, cityInfo], parts)
	for i, b := range builders {
		locals[i] = b.Build()
	}

	c, err := NewCoordinator(locals, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func hitKeys[V any](hits []index.Hit[string, V]) []string {
	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = h.Key
	}
	return keys
}

var matchAll = lexical.Query{}

var berlin = geom.Point{Lon: 13.405, Lat: 52.52}

func TestCoordinatorKNN(t *testing.T) {
	c := splitCities(t, 3)

	hits, err := c.KNN(context.Background(), berlin, 4, matchAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"berlin", "hamburg", "frankfurt", "cologne"}, hitKeys(hits))
}

// The global result must not depend on how documents are spread over
// partitions: any partitioning of the same corpus answers every query
// identically to a single index.
func TestCoordinatorPartitioningInvariance(t *testing.T) {
	ctx := context.Background()
	single := splitCities(t, 1)

	wantKNN, err := single.KNN(ctx, berlin, 5, matchAll)
	require.NoError(t, err)
	wantCircle, err := single.Circle(ctx, berlin, 490, 10, geom.Intersects, matchAll)
	require.NoError(t, err)
	wantText, err := single.Text(ctx, lexical.MustParse("coastal"), 5)
	require.NoError(t, err)
	wantAll, err := single.Text(ctx, matchAll, 10)
	require.NoError(t, err)

	for _, parts := range []int{2, 3, 7} {
		t.Run(fmt.Sprintf("parts=%d", parts), func(t *testing.T) {
			c := splitCities(t, parts)

			gotKNN, err := c.KNN(ctx, berlin, 5, matchAll)
			require.NoError(t, err)
			assert.Equal(t, wantKNN, gotKNN)

			gotCircle, err := c.Circle(ctx, berlin, 490, 10, geom.Intersects, matchAll)
			require.NoError(t, err)
			assert.Equal(t, wantCircle, gotCircle)

			// BM25 uses partition-local collection statistics, so across
			// different partitionings only the matched set is stable.
			gotText, err := c.Text(ctx, lexical.MustParse("coastal"), 5)
			require.NoError(t, err)
			assert.ElementsMatch(t, hitKeys(wantText), hitKeys(gotText))

			gotAll, err := c.Text(ctx, matchAll, 10)
			require.NoError(t, err)
			assert.Equal(t, wantAll, gotAll)
		})
	}
}

func TestCoordinatorKNNWithText(t *testing.T) {
	c := splitCities(t, 2)

	hits, err := c.KNN(context.Background(), berlin, 5, lexical.MustParse("country:pt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"porto", "lisbon"}, hitKeys(hits))
}

func TestCoordinatorCircle(t *testing.T) {
	c := splitCities(t, 3)

	hits, err := c.Circle(context.Background(), berlin, 300, 10, geom.Intersects, matchAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"berlin", "hamburg"}, hitKeys(hits))
}

func TestCoordinatorRect(t *testing.T) {
	c := splitCities(t, 2)

	box := geom.RectFromCorners(geom.Point{Lon: -10, Lat: 38}, geom.Point{Lon: -8, Lat: 42})
	hits, err := c.Rect(context.Background(), box, 10, geom.Intersects, matchAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"lisbon", "porto"}, hitKeys(hits))
}

func TestCoordinatorSpatial(t *testing.T) {
	c := splitCities(t, 2)

	shape, err := geom.ParseWKT("POLYGON ((12 52, 15 52, 13.5 54, 12 52))")
	require.NoError(t, err)

	hits, err := c.Spatial(context.Background(), shape, 10, geom.Intersects, matchAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"berlin"}, hitKeys(hits))
}

func TestCoordinatorText(t *testing.T) {
	c := splitCities(t, 3)

	hits, err := c.Text(context.Background(), lexical.MustParse("harbor"), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"hamburg"}, hitKeys(hits))
}

// Equal scores merge in ascending key order no matter which partition a
// document lives in.
func TestCoordinatorTieBreakAcrossPartitions(t *testing.T) {
	c := splitCities(t, 3)

	hits, err := c.Text(context.Background(), matchAll, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"berlin", "cologne", "frankfurt", "hamburg"}, hitKeys(hits))
}

func TestCoordinatorDegenerateK(t *testing.T) {
	c := splitCities(t, 2)

	for _, k := range []int{0, -1} {
		hits, err := c.KNN(context.Background(), berlin, k, matchAll)
		require.NoError(t, err)
		require.NotNil(t, hits)
		assert.Empty(t, hits)
	}
}

func TestCoordinatorZeroPartitions(t *testing.T) {
	c, err := NewCoordinator[string, cityInfo](nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 0, c.Partitions())

	hits, err := c.KNN(context.Background(), berlin, 3, matchAll)
	require.NoError(t, err)
	require.NotNil(t, hits)
	assert.Empty(t, hits)

	n, err := c.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ok, err := c.Exists(context.Background(), "berlin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCoordinatorNilPartition(t *testing.T) {
	_, err := NewCoordinator([]index.Local[string, cityInfo]{nil})
	require.Error(t, err)

	var pe *PartitionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Partition)
}

func TestCoordinatorCount(t *testing.T) {
	c := splitCities(t, 3)

	n, err := c.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(allCityNames), n)
}

func TestCoordinatorExists(t *testing.T) {
	c := splitCities(t, 3)

	ok, err := c.Exists(context.Background(), "porto")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(context.Background(), "atlantis")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCoordinatorPartitionFailure(t *testing.T) {
	errBoom := errors.New("boom")

	good := mem.NewBuilder[string, cityInfo](cityShape, cityFields)
	require.NoError(t, good.Add("berlin", cityInfos["berlin"]))

	c, err := NewCoordinator([]index.Local[string, cityInfo]{
		good.Build(),
		&failingLocal[string, cityInfo]{err: errBoom},
	})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.KNN(context.Background(), berlin, 3, matchAll)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "partition 1")

	var pe *PartitionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Partition)

	_, err = c.Exists(context.Background(), "berlin")
	require.Error(t, err)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Partition)
}

func TestCoordinatorFilter(t *testing.T) {
	ctx := context.Background()
	c := splitCities(t, 3)

	de, err := c.Filter(ctx, func(_ string, v cityInfo) bool { return v.Country == "de" })
	require.NoError(t, err)
	defer de.Close()

	assert.Equal(t, c.Partitions(), de.Partitions())

	n, err := de.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	ok, err := de.Exists(ctx, "lisbon")
	require.NoError(t, err)
	assert.False(t, ok)

	// The source keeps all documents.
	n, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(allCityNames), n)
}

// A derived Coordinator must survive its parent: with an owned runner the
// child gets a pool of its own.
func TestCoordinatorFilterIndependentLifecycle(t *testing.T) {
	ctx := context.Background()
	c := splitCities(t, 2)

	pt, err := c.Filter(ctx, func(_ string, v cityInfo) bool { return v.Country == "pt" })
	require.NoError(t, err)
	defer pt.Close()

	require.NoError(t, c.Close())

	hits, err := pt.KNN(ctx, berlin, 2, matchAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"porto", "lisbon"}, hitKeys(hits))
}

func TestCoordinatorExternalRunnerShared(t *testing.T) {
	ctx := context.Background()
	probe := &closeProbe{Runner: SerialRunner{}}
	c := splitCities(t, 2, WithRunner(probe))

	child, err := c.Filter(ctx, func(string, cityInfo) bool { return true })
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, child.Close())

	// The caller owns the external runner; neither Coordinator closed it.
	assert.Equal(t, 0, probe.closes)
}

func TestCoordinatorSerialRunner(t *testing.T) {
	c := splitCities(t, 3, WithRunner(SerialRunner{}))

	hits, err := c.KNN(context.Background(), berlin, 2, matchAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"berlin", "hamburg"}, hitKeys(hits))
}

func TestCoordinatorClose(t *testing.T) {
	ctx := context.Background()
	c := splitCities(t, 2)
	local := c.Local(0)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.KNN(ctx, berlin, 3, matchAll)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = c.Count(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = c.Exists(ctx, "berlin")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = c.Filter(ctx, func(string, cityInfo) bool { return true })
	assert.ErrorIs(t, err, ErrClosed)

	// Close cascades to the partitions.
	_, err = local.KNN(ctx, berlin, 1, matchAll)
	assert.ErrorIs(t, err, index.ErrClosed)
}

func TestCoordinatorClosePropagatesPartitionFailure(t *testing.T) {
	errShut := errors.New("shutdown failed")

	good := mem.NewBuilder[string, cityInfo](cityShape, cityFields)
	require.NoError(t, good.Add("berlin", cityInfos["berlin"]))

	c, err := NewCoordinator([]index.Local[string, cityInfo]{
		good.Build(),
		&failingLocal[string, cityInfo]{err: errShut, failClose: true},
	})
	require.NoError(t, err)

	err = c.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errShut)

	var pe *PartitionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Partition)
}

// closeProbe counts Close calls on a wrapped Runner.
type closeProbe struct {
	Runner
	closes int
}

func (p *closeProbe) Close() error {
	p.closes++
	return p.Runner.Close()
}

// failingLocal fails every operation with a fixed error. Close succeeds
// unless failClose is set.
type failingLocal[K cmp.Ordered, V any] struct {
	err       error
	failClose bool
}

var _ index.Local[string, cityInfo] = (*failingLocal[string, cityInfo])(nil)

func (f *failingLocal[K, V]) KNN(context.Context, geom.Point, int, lexical.Query) ([]index.Hit[K, V], error) {
	return nil, f.err
}

func (f *failingLocal[K, V]) Circle(context.Context, geom.Point, float64, int, geom.Predicate, lexical.Query) ([]index.Hit[K, V], error) {
	return nil, f.err
}

func (f *failingLocal[K, V]) Rect(context.Context, geom.Rect, int, geom.Predicate, lexical.Query) ([]index.Hit[K, V], error) {
	return nil, f.err
}

func (f *failingLocal[K, V]) Spatial(context.Context, geom.Shape, int, geom.Predicate, lexical.Query) ([]index.Hit[K, V], error) {
	return nil, f.err
}

func (f *failingLocal[K, V]) Text(context.Context, lexical.Query, int) ([]index.Hit[K, V], error) {
	return nil, f.err
}

func (f *failingLocal[K, V]) Contains(K) (bool, error) { return false, f.err }

func (f *failingLocal[K, V]) Filter(func(K, V) bool) (index.Local[K, V], error) {
	return nil, f.err
}

func (f *failingLocal[K, V]) Len() int { return 0 }

func (f *failingLocal[K, V]) Docs() iter.Seq2[K, V] {
	return func(func(K, V) bool) {}
}

func (f *failingLocal[K, V]) Close() error {
	if f.failClose {
		return f.err
	}
	return nil
}
