package testutil

import (
	"fmt"
	"iter"
	"math"
	"math/rand"
	"sync"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/metadata"
)

// kmPerDegree is the meridian arc length of one degree of latitude.
const kmPerDegree = math.Pi * geom.EarthRadiusKm / 180

// RNG is a seeded random source for tests and benchmarks.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Point returns a point distributed area-uniformly over the sphere, so
// polar latitudes are not over-represented.
func (r *RNG) Point() geom.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointLocked()
}

// Points returns n area-uniform points. Locks only once per call.
func (r *RNG) Points(n int) []geom.Point {
	r.mu.Lock()
	defer r.mu.Unlock()

	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = r.pointLocked()
	}
	return pts
}

// PointNear returns a point scattered around center with a gaussian spread
// of roughly spreadKm in each axis. Latitude is clamped to the valid range
// and longitude wraps at the antimeridian.
func (r *RNG) PointNear(center geom.Point, spreadKm float64) geom.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointNearLocked(center, spreadKm)
}

// ClusteredPoints returns n points scattered around `clusters` random
// centers. Useful for benchmarks: real geo data concentrates around
// cities, not uniformly over the globe.
func (r *RNG) ClusteredPoints(n, clusters int, spreadKm float64) []geom.Point {
	if clusters < 1 {
		clusters = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	centers := make([]geom.Point, clusters)
	for i := range centers {
		centers[i] = r.pointLocked()
	}

	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = r.pointNearLocked(centers[i%clusters], spreadKm)
	}
	return pts
}

func (r *RNG) pointLocked() geom.Point {
	lat := math.Asin(2*r.rand.Float64()-1) * 180 / math.Pi
	lon := r.rand.Float64()*360 - 180
	return geom.Point{Lon: lon, Lat: lat}
}

func (r *RNG) pointNearLocked(center geom.Point, spreadKm float64) geom.Point {
	lat := center.Lat + r.rand.NormFloat64()*spreadKm/kmPerDegree

	// One degree of longitude shrinks toward the poles.
	cosLat := math.Max(math.Cos(center.Lat*math.Pi/180), 0.01)
	lon := center.Lon + r.rand.NormFloat64()*spreadKm/(kmPerDegree*cosLat)

	return geom.Point{Lon: wrapLon(lon), Lat: clampLat(lat)}
}

func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// Place is a synthetic document with geometry, filterable fields, and
// searchable text.
type Place struct {
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	Category string  `json:"category"`
	Pop      int     `json:"pop"`
	Desc     string  `json:"desc"`
}

// PlaceFields derives the metadata fields of a Place. Pass it as the
// builder's fields function.
func PlaceFields(p Place) metadata.Document {
	return metadata.Document{
		"category": metadata.String(p.Category),
		"pop":      metadata.Int(int64(p.Pop)),
		"desc":     metadata.String(p.Desc),
	}
}

var (
	placeCategories = []string{"cafe", "museum", "park", "station", "hotel", "bakery"}
	placeAdjectives = []string{"quiet", "busy", "historic", "modern", "leafy", "riverside", "famous", "hidden"}
	placeLandmarks  = []string{"harbor", "cathedral", "market", "bridge", "river", "castle", "square", "gardens"}
)

// Corpus is a deterministic set of synthetic places clustered around a few
// centers, keyed "place-000042" in generation order.
type Corpus struct {
	keys    []string
	places  map[string]Place
	centers []geom.Point
}

// NewCorpus generates n places scattered around `centers` random cluster
// centers with the given spread. The same RNG seed yields the same corpus.
func NewCorpus(r *RNG, n, centers int, spreadKm float64) *Corpus {
	if centers < 1 {
		centers = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Corpus{
		keys:    make([]string, n),
		places:  make(map[string]Place, n),
		centers: make([]geom.Point, centers),
	}
	for i := range c.centers {
		c.centers[i] = r.pointLocked()
	}

	for i := range n {
		pt := r.pointNearLocked(c.centers[i%centers], spreadKm)
		category := placeCategories[r.rand.Intn(len(placeCategories))]

		key := fmt.Sprintf("place-%06d", i)
		c.keys[i] = key
		c.places[key] = Place{
			Lon:      pt.Lon,
			Lat:      pt.Lat,
			Category: category,
			Pop:      r.rand.Intn(1_000_000),
			Desc: fmt.Sprintf("%s %s near the %s",
				placeAdjectives[r.rand.Intn(len(placeAdjectives))],
				category,
				placeLandmarks[r.rand.Intn(len(placeLandmarks))]),
		}
	}
	return c
}

// Len returns the number of places.
func (c *Corpus) Len() int {
	return len(c.keys)
}

// Keys returns the keys in generation order. The caller must not mutate
// the returned slice.
func (c *Corpus) Keys() []string {
	return c.keys
}

// Get returns the place stored under key.
func (c *Corpus) Get(key string) (Place, bool) {
	p, ok := c.places[key]
	return p, ok
}

// Centers returns the cluster centers.
func (c *Corpus) Centers() []geom.Point {
	return c.centers
}

// Docs iterates the corpus in generation order, ready for a builder.
func (c *Corpus) Docs() iter.Seq2[string, Place] {
	return func(yield func(string, Place) bool) {
		for _, key := range c.keys {
			if !yield(key, c.places[key]) {
				return
			}
		}
	}
}

// Shape derives the geometry of the place stored under key. Pass it as
// the builder's shape function.
func (c *Corpus) Shape(key string) (geom.Shape, error) {
	p, ok := c.places[key]
	if !ok {
		return nil, fmt.Errorf("unknown place %q", key)
	}
	return geom.Point{Lon: p.Lon, Lat: p.Lat}, nil
}

// QueryPoint returns a query location near one of the cluster centers,
// which is where the data is.
func (c *Corpus) QueryPoint(r *RNG) geom.Point {
	return r.PointNear(c.centers[r.Intn(len(c.centers))], 10)
}
