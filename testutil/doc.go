// Package testutil provides testing utilities for geoshard.
//
// This package is intended for use in tests and benchmarks only. It
// provides a seeded thread-safe random source, generators for realistic
// point distributions, and a synthetic place corpus ready to feed a
// collection builder.
//
// # Random Points
//
//	rng := testutil.NewRNG(seed)
//	p := rng.Point()                  // area-uniform on the sphere
//	q := rng.PointNear(p, 25)         // gaussian scatter at km scale
//	pts := rng.ClusteredPoints(10000, 8, 25)
//
// # Synthetic Corpus
//
//	corpus := testutil.NewCorpus(rng, 10000, 8, 25)
//	coll, err := geoshard.New[string, testutil.Place](corpus.Shape, testutil.PlaceFields).
//		Build(ctx, corpus.Docs())
package testutil
