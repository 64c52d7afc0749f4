// Package geom provides the geometry model for geoshard: points, rectangles,
// circles and parsed WKT shapes, plus the spatial predicates evaluated by the
// local indexes.
//
// Coordinates are geographic: degrees longitude/latitude on the mean sphere.
// Distances are great-circle kilometres.
package geom
