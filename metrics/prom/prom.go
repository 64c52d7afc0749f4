// Package prom exposes collection metrics to Prometheus.
//
// Collector implements geoshard.MetricsCollector on one side and
// prometheus.Collector on the other, so wiring is two lines:
//
//	metrics := prom.New()
//	prometheus.MustRegister(metrics)
//	coll, err := geoshard.New[string, Place](shapeFn, fieldsFn).
//		Metrics(metrics).
//		Build(ctx, docs)
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/geoshard/geoshard"
)

// Options configures the collector.
type Options struct {
	// Namespace prefixes every metric name. Defaults to "geoshard".
	Namespace string

	// ConstLabels are attached to every metric, e.g. a collection name
	// when one process serves several collections.
	ConstLabels prometheus.Labels
}

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) func(*Options) {
	return func(o *Options) {
		o.Namespace = ns
	}
}

// WithConstLabels attaches labels to every metric.
func WithConstLabels(labels prometheus.Labels) func(*Options) {
	return func(o *Options) {
		o.ConstLabels = labels
	}
}

// Collector bridges collection instrumentation to Prometheus. Register it
// once per registry; two collections sharing one Collector aggregate into
// the same series unless ConstLabels tell them apart.
type Collector struct {
	builds        *prometheus.CounterVec
	buildDocs     prometheus.Counter
	buildSeconds  prometheus.Histogram
	searches      *prometheus.CounterVec
	searchSeconds *prometheus.HistogramVec
	links         *prometheus.CounterVec
	linkEntities  prometheus.Counter
	linkSeconds   prometheus.Histogram
	filters       *prometheus.CounterVec
	snapshots     *prometheus.CounterVec
	snapshotBytes *prometheus.CounterVec
	snapSeconds   *prometheus.HistogramVec
}

var (
	_ geoshard.MetricsCollector = (*Collector)(nil)
	_ prometheus.Collector      = (*Collector)(nil)
)

// New returns an unregistered collector.
func New(optFns ...func(*Options)) *Collector {
	opts := Options{Namespace: "geoshard"}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	return &Collector{
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "builds_total",
				Help:        "Total number of collection builds",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"status"},
		),
		buildDocs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "build_docs_total",
				Help:        "Total documents indexed by builds",
				ConstLabels: opts.ConstLabels,
			},
		),
		buildSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   opts.Namespace,
				Name:        "build_duration_seconds",
				Help:        "Collection build duration in seconds",
				Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
				ConstLabels: opts.ConstLabels,
			},
		),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "searches_total",
				Help:        "Total number of search operations",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"op", "status"},
		),
		searchSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   opts.Namespace,
				Name:        "search_duration_seconds",
				Help:        "Search duration in seconds",
				Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
				ConstLabels: opts.ConstLabels,
			},
			[]string{"op"},
		),
		links: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "links_total",
				Help:        "Total number of batch link operations",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"status"},
		),
		linkEntities: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "link_entities_total",
				Help:        "Total query points processed by batch links",
				ConstLabels: opts.ConstLabels,
			},
		),
		linkSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   opts.Namespace,
				Name:        "link_duration_seconds",
				Help:        "Batch link duration in seconds",
				Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
				ConstLabels: opts.ConstLabels,
			},
		),
		filters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "filters_total",
				Help:        "Total number of filter derivations",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"status"},
		),
		snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "snapshot_ops_total",
				Help:        "Total snapshot saves and loads",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"op", "status"},
		),
		snapshotBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "snapshot_bytes_total",
				Help:        "Total bytes moved by snapshot saves and loads",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"op"},
		),
		snapSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   opts.Namespace,
				Name:        "snapshot_duration_seconds",
				Help:        "Snapshot save and load duration in seconds",
				Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
				ConstLabels: opts.ConstLabels,
			},
			[]string{"op"},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.builds, c.buildDocs, c.buildSeconds,
		c.searches, c.searchSeconds,
		c.links, c.linkEntities, c.linkSeconds,
		c.filters,
		c.snapshots, c.snapshotBytes, c.snapSeconds,
	}
}

// RecordBuild implements geoshard.MetricsCollector.
func (c *Collector) RecordBuild(docs, partitions int, duration time.Duration, err error) {
	c.builds.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.buildDocs.Add(float64(docs))
		c.buildSeconds.Observe(duration.Seconds())
	}
}

// RecordSearch implements geoshard.MetricsCollector.
func (c *Collector) RecordSearch(op string, k int, duration time.Duration, err error) {
	c.searches.WithLabelValues(op, status(err)).Inc()
	if err == nil {
		c.searchSeconds.WithLabelValues(op).Observe(duration.Seconds())
	}
}

// RecordLink implements geoshard.MetricsCollector.
func (c *Collector) RecordLink(entities, k int, duration time.Duration, err error) {
	c.links.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.linkEntities.Add(float64(entities))
		c.linkSeconds.Observe(duration.Seconds())
	}
}

// RecordFilter implements geoshard.MetricsCollector.
func (c *Collector) RecordFilter(duration time.Duration, err error) {
	c.filters.WithLabelValues(status(err)).Inc()
}

// RecordSnapshotSave implements geoshard.MetricsCollector.
func (c *Collector) RecordSnapshotSave(partitions int, bytes int64, duration time.Duration, err error) {
	c.recordSnapshot("save", bytes, duration, err)
}

// RecordSnapshotLoad implements geoshard.MetricsCollector.
func (c *Collector) RecordSnapshotLoad(partitions int, bytes int64, duration time.Duration, err error) {
	c.recordSnapshot("load", bytes, duration, err)
}

func (c *Collector) recordSnapshot(op string, bytes int64, duration time.Duration, err error) {
	c.snapshots.WithLabelValues(op, status(err)).Inc()
	if err == nil {
		c.snapshotBytes.WithLabelValues(op).Add(float64(bytes))
		c.snapSeconds.WithLabelValues(op).Observe(duration.Seconds())
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
