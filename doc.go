// Package geoshard provides an embedded, partitioned geospatial search core
// for Go.
//
// A Collection holds immutable documents spread over partitions. Each
// partition indexes its documents in an s2 cell grid plus a BM25 text index,
// and every query fans out to all partitions and merges the bounded
// per-partition results into one global top-k:
//
//   - Nearest-neighbor search with optional text restriction
//   - Circle, bounding-box and arbitrary WKT-shape search with the spatial
//     predicates intersects, contains, within and disjoint
//   - BM25 full-text search with field-scoped terms
//   - Metadata post-filtering (eq/ne/gt/gte/lt/lte/in/contains)
//   - Batch link-by-KNN joins for entity enrichment
//   - Snapshot persistence to local disk, S3 or any BlobStore
//
// # Quick Start
//
// Build a collection from your documents:
//
//	type City struct {
//	    Lon, Lat float64
//	    Country  string
//	}
//
//	coll, err := geoshard.New[string, City](
//	    func(key string) (geom.Shape, error) { return cities[key].Point(), nil },
//	    func(c City) metadata.Document {
//	        return metadata.Document{"country": metadata.String(c.Country)}
//	    },
//	).Shards(4).Build(ctx, maps.All(cities))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer coll.Close()
//
// Query it:
//
//	hits, err := coll.KNNSearch(ctx, geom.NewPoint(13.4, 52.5), 10)
//
//	hits, err = coll.CircleSearch(ctx, center, 25, 10,
//	    geoshard.WithText("country:de"))
//
//	hits, err = coll.Query().
//	    Near(geom.NewPoint(13.4, 52.5)).
//	    Text("harbor").
//	    K(5).
//	    Execute(ctx)
//
// Enrich a batch of entities with their nearest documents:
//
//	linked, err := geoshard.Link(ctx, coll, orders,
//	    func(o Order) geom.Point { return o.Dropoff }, 3)
//
// # Immutability
//
// Collections are frozen at build time. Queries run lock-free and
// concurrently; deriving a changed collection goes through Filter, which
// produces a new Collection and leaves the source untouched.
package geoshard
