package geoshard

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prom subpackage ships a Prometheus-backed implementation.
type MetricsCollector interface {
	// RecordBuild is called after a collection build. docs is the number of
	// documents indexed, partitions the shard count.
	RecordBuild(docs, partitions int, duration time.Duration, err error)

	// RecordSearch is called after each search operation. op names the query
	// kind ("knn", "circle", "rect", "spatial", "text"), k is the requested
	// result bound.
	RecordSearch(op string, k int, duration time.Duration, err error)

	// RecordLink is called after a batch link. entities is the query point
	// count, k the per-entity bound.
	RecordLink(entities, k int, duration time.Duration, err error)

	// RecordFilter is called after a filter derivation.
	RecordFilter(duration time.Duration, err error)

	// RecordSnapshotSave is called after persisting a collection.
	RecordSnapshotSave(partitions int, bytes int64, duration time.Duration, err error)

	// RecordSnapshotLoad is called after loading a persisted collection.
	RecordSnapshotLoad(partitions int, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordSearch(string, int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordLink(int, int, time.Duration, error)           {}
func (NoopMetricsCollector) RecordFilter(time.Duration, error)                   {}
func (NoopMetricsCollector) RecordSnapshotSave(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshotLoad(int, int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildDocs        atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	LinkCount        atomic.Int64
	LinkErrors       atomic.Int64
	LinkEntities     atomic.Int64
	FilterCount      atomic.Int64
	FilterErrors     atomic.Int64
	SnapshotSaves    atomic.Int64
	SnapshotLoads    atomic.Int64
	SnapshotErrors   atomic.Int64
	SnapshotBytes    atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(docs, partitions int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildDocs.Add(int64(docs))
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(op string, k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordLink implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLink(entities, k int, duration time.Duration, err error) {
	b.LinkCount.Add(1)
	b.LinkEntities.Add(int64(entities))
	if err != nil {
		b.LinkErrors.Add(1)
	}
}

// RecordFilter implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFilter(duration time.Duration, err error) {
	b.FilterCount.Add(1)
	if err != nil {
		b.FilterErrors.Add(1)
	}
}

// RecordSnapshotSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotSave(partitions int, bytes int64, duration time.Duration, err error) {
	b.SnapshotSaves.Add(1)
	b.SnapshotBytes.Add(bytes)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(partitions int, bytes int64, duration time.Duration, err error) {
	b.SnapshotLoads.Add(1)
	b.SnapshotBytes.Add(bytes)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:     b.BuildCount.Load(),
		BuildErrors:    b.BuildErrors.Load(),
		BuildDocs:      b.BuildDocs.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.searchAvgNanos(),
		LinkCount:      b.LinkCount.Load(),
		LinkErrors:     b.LinkErrors.Load(),
		LinkEntities:   b.LinkEntities.Load(),
		FilterCount:    b.FilterCount.Load(),
		FilterErrors:   b.FilterErrors.Load(),
		SnapshotSaves:  b.SnapshotSaves.Load(),
		SnapshotLoads:  b.SnapshotLoads.Load(),
		SnapshotErrors: b.SnapshotErrors.Load(),
		SnapshotBytes:  b.SnapshotBytes.Load(),
	}
}

func (b *BasicMetricsCollector) searchAvgNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount     int64
	BuildErrors    int64
	BuildDocs      int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	LinkCount      int64
	LinkErrors     int64
	LinkEntities   int64
	FilterCount    int64
	FilterErrors   int64
	SnapshotSaves  int64
	SnapshotLoads  int64
	SnapshotErrors int64
	SnapshotBytes  int64
}
