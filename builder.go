package geoshard

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geoshard/geoshard/codec"
	"github.com/geoshard/geoshard/distance"
	"github.com/geoshard/geoshard/engine"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/index/mem"
	"github.com/geoshard/geoshard/resource"
)

// ctxCheckEvery is how many documents Build ingests between context checks.
const ctxCheckEvery = 1024

// Builder assembles a Collection. The zero Builder is not usable; start
// with New. Builder methods return a modified copy, so a configured
// builder can be reused and customized per call:
//
//	base := geoshard.New[string, City](shapeFn, fieldsFn).Shards(4)
//	fast := base.Metric(distance.Equirectangular)
type Builder[K cmp.Ordered, V any] struct {
	shapeFn   index.ShapeFunc[K]
	fieldsFn  index.FieldsFunc[V]
	shards    int
	metric    distance.Metric
	codec     codec.Codec
	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller
	poolSize  int
	runner    engine.Runner
}

// New returns a Builder for a collection keyed by K with payload V.
// shapeFn derives each document's geometry from its key and must not be
// nil. fieldsFn derives the metadata fields from the payload; nil means
// documents carry no fields.
func New[K cmp.Ordered, V any](shapeFn index.ShapeFunc[K], fieldsFn index.FieldsFunc[V]) Builder[K, V] {
	return Builder[K, V]{
		shapeFn:  shapeFn,
		fieldsFn: fieldsFn,
	}
}

// Shards sets the number of partitions. Zero, the default, picks
// runtime.GOMAXPROCS(0).
func (b Builder[K, V]) Shards(n int) Builder[K, V] {
	b.shards = n
	return b
}

// Metric sets the distance metric used for ranking and hit distances.
// The default is Haversine.
func (b Builder[K, V]) Metric(m distance.Metric) Builder[K, V] {
	b.metric = m
	return b
}

// Codec sets the codec snapshots of the collection are written with.
// The default is codec.Default.
func (b Builder[K, V]) Codec(c codec.Codec) Builder[K, V] {
	b.codec = c
	return b
}

// Logger sets the structured logger. The default discards everything.
func (b Builder[K, V]) Logger(l *Logger) Builder[K, V] {
	b.logger = l
	return b
}

// Metrics sets the metrics collector. The default discards everything.
func (b Builder[K, V]) Metrics(m MetricsCollector) Builder[K, V] {
	b.metrics = m
	return b
}

// Resources sets the controller that gates partition freezes and, later,
// snapshot IO. A nil controller enforces nothing.
func (b Builder[K, V]) Resources(rc *resource.Controller) Builder[K, V] {
	b.resources = rc
	return b
}

// PoolSize sets the size of the worker pool the collection fans queries
// out on. Zero, the default, sizes the pool to the partition count.
func (b Builder[K, V]) PoolSize(n int) Builder[K, V] {
	b.poolSize = n
	return b
}

// Runner sets an external runner for query fan-out. The collection does
// not close an external runner; the caller owns its lifecycle.
func (b Builder[K, V]) Runner(r engine.Runner) Builder[K, V] {
	b.runner = r
	return b
}

// ShapeFunc returns the shape derivation the builder indexes with.
func (b Builder[K, V]) ShapeFunc() index.ShapeFunc[K] { return b.shapeFn }

// FieldsFunc returns the fields derivation the builder indexes with.
func (b Builder[K, V]) FieldsFunc() index.FieldsFunc[V] { return b.fieldsFn }

// Build ingests docs and returns the finished collection. Documents are
// spread round-robin over the shards; the freeze of each shard runs in
// parallel, gated by the resource controller when one is set.
func (b Builder[K, V]) Build(ctx context.Context, docs iter.Seq2[K, V]) (*Collection[K, V], error) {
	start := time.Now()

	logger := b.logger
	if logger == nil {
		logger = NoopLogger()
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	count, coll, err := b.build(ctx, docs, logger, metrics)
	metrics.RecordBuild(count, b.numShards(), time.Since(start), err)
	logger.LogBuild(ctx, count, b.numShards(), err)
	return coll, err
}

// MustBuild is Build but panics on error. Intended for initialization
// paths where a failure is a programming mistake.
func (b Builder[K, V]) MustBuild(ctx context.Context, docs iter.Seq2[K, V]) *Collection[K, V] {
	coll, err := b.Build(ctx, docs)
	if err != nil {
		panic(fmt.Sprintf("geoshard: build collection: %v", err))
	}
	return coll
}

// Assemble wires prebuilt partition indexes into a collection, bypassing
// ingestion. Snapshot loading uses it to reproduce a saved partition
// layout exactly; it also admits custom index.Local implementations. The
// builder's shape and fields functions and shard count are not consulted.
func (b Builder[K, V]) Assemble(ctx context.Context, locals []index.Local[K, V]) (*Collection[K, V], error) {
	start := time.Now()

	logger := b.logger
	if logger == nil {
		logger = NoopLogger()
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	count := 0
	coord, err := engine.NewCoordinator(locals, b.engineOptions()...)
	if err == nil {
		for _, l := range locals {
			count += l.Len()
		}
	}
	metrics.RecordBuild(count, len(locals), time.Since(start), err)
	logger.LogBuild(ctx, count, len(locals), err)
	if err != nil {
		return nil, err
	}

	return &Collection[K, V]{
		coord:   coord,
		codec:   b.codecOrDefault(),
		metrics: metrics,
		logger:  logger,
		metric:  b.metric,
		count:   count,
	}, nil
}

func (b Builder[K, V]) numShards() int {
	if b.shards == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return b.shards
}

func (b Builder[K, V]) engineOptions() []func(*engine.Options) {
	switch {
	case b.runner != nil:
		return []func(*engine.Options){engine.WithRunner(b.runner)}
	case b.poolSize > 0:
		return []func(*engine.Options){engine.WithPoolSize(b.poolSize)}
	default:
		return nil
	}
}

func (b Builder[K, V]) codecOrDefault() codec.Codec {
	if b.codec == nil {
		return codec.Default
	}
	return b.codec
}

func (b Builder[K, V]) build(ctx context.Context, docs iter.Seq2[K, V], logger *Logger, metrics MetricsCollector) (int, *Collection[K, V], error) {
	if b.shapeFn == nil {
		return 0, nil, ErrNilShapeFunc
	}
	shards := b.numShards()
	if shards < 1 {
		return 0, nil, fmt.Errorf("%w: %d", ErrInvalidShards, shards)
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if docs == nil {
		docs = func(func(K, V) bool) {}
	}

	distFn, err := distance.NewFunc(b.metric)
	if err != nil {
		return 0, nil, err
	}

	builders := make([]*mem.Builder[K, V], shards)
	for ord := range builders {
		builders[ord] = mem.NewBuilder(b.shapeFn, b.fieldsFn, mem.WithDistance(distFn))
	}

	count := 0
	for k, v := range docs {
		if count%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return count, nil, err
			}
		}
		if err := builders[count%shards].Add(k, v); err != nil {
			return count, nil, fmt.Errorf("add document: %w", err)
		}
		count++
	}

	locals := make([]index.Local[K, V], shards)
	g, gctx := errgroup.WithContext(ctx)
	for ord, mb := range builders {
		g.Go(func() error {
			if err := b.resources.AcquireBuild(gctx); err != nil {
				return fmt.Errorf("partition %d: acquire build slot: %w", ord, err)
			}
			defer b.resources.ReleaseBuild()

			locals[ord] = mb.Build()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return count, nil, err
	}

	coord, err := engine.NewCoordinator(locals, b.engineOptions()...)
	if err != nil {
		return count, nil, err
	}

	return count, &Collection[K, V]{
		coord:   coord,
		codec:   b.codecOrDefault(),
		metrics: metrics,
		logger:  logger,
		metric:  b.metric,
		count:   count,
	}, nil
}
