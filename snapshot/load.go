package snapshot

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geoshard/geoshard"
	"github.com/geoshard/geoshard/blobstore"
	"github.com/geoshard/geoshard/codec"
	"github.com/geoshard/geoshard/distance"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/index/mem"
	"github.com/geoshard/geoshard/internal/hash"
	"github.com/geoshard/geoshard/resource"
)

// Load reads the store's current snapshot and rebuilds the collection with
// the builder's conversion functions. The saved partition layout, codec and
// distance metric are reproduced from the manifest; the builder's shard
// count and codec settings are not consulted. A store holding no snapshot
// fails with blobstore.ErrNotFound.
func Load[K cmp.Ordered, V any](ctx context.Context, store blobstore.BlobStore, b geoshard.Builder[K, V], optFns ...func(*Options)) (*geoshard.Collection[K, V], error) {
	start := time.Now()
	opts := applyOptions(optFns)

	if store == nil {
		return nil, fmt.Errorf("snapshot: nil store")
	}
	if b.ShapeFunc() == nil {
		return nil, geoshard.ErrNilShapeFunc
	}

	m, err := Current(ctx, store)
	if err != nil {
		return nil, err
	}

	enc, ok := codec.ByName(m.Codec)
	if !ok {
		return nil, fmt.Errorf("snapshot %s encoded with unknown codec %q", m.ID, m.Codec)
	}
	comp, err := ParseCompression(m.Compression)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", m.ID, err)
	}
	metric, err := distance.ParseMetric(m.Metric)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", m.ID, err)
	}
	distFn, err := distance.NewFunc(metric)
	if err != nil {
		return nil, err
	}
	b = b.Metric(metric).Codec(enc)

	locals := make([]index.Local[K, V], len(m.Partitions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.parallelism())
	for _, p := range m.Partitions {
		g.Go(func() error {
			local, err := loadSegment(gctx, store, b, enc, comp, distFn, p, opts)
			if err != nil {
				return fmt.Errorf("partition %d: %w", p.Ord, err)
			}
			locals[p.Ord] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	coll, err := b.Assemble(ctx, locals)
	if err != nil {
		return nil, err
	}

	coll.Metrics().RecordSnapshotLoad(len(m.Partitions), m.TotalBytes(), time.Since(start), nil)
	coll.Logger().LogSnapshot(ctx, "load", m.ID, nil)
	return coll, nil
}

func loadSegment[K cmp.Ordered, V any](ctx context.Context, store blobstore.BlobStore, b geoshard.Builder[K, V], enc codec.Codec, comp Compression, distFn distance.Func, p Partition, opts Options) (index.Local[K, V], error) {
	blob, err := readSegment(ctx, store, p, opts.Resources)
	if err != nil {
		return nil, err
	}

	data, err := decompress(blob, comp)
	if err != nil {
		return nil, &CorruptError{Blob: p.Blob, Reason: err.Error()}
	}

	var seg segment[K, V]
	if err := enc.Unmarshal(data, &seg); err != nil {
		return nil, &CorruptError{Blob: p.Blob, Reason: fmt.Sprintf("decode segment: %v", err)}
	}
	if len(seg.Keys) != len(seg.Vals) {
		return nil, &CorruptError{
			Blob:   p.Blob,
			Reason: fmt.Sprintf("segment holds %d keys but %d values", len(seg.Keys), len(seg.Vals)),
		}
	}
	if len(seg.Keys) != p.Docs {
		return nil, &CorruptError{
			Blob:   p.Blob,
			Reason: fmt.Sprintf("segment holds %d documents, manifest says %d", len(seg.Keys), p.Docs),
		}
	}

	mb := mem.NewBuilder(b.ShapeFunc(), b.FieldsFunc(), mem.WithDistance(distFn))
	for i := range seg.Keys {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := mb.Add(seg.Keys[i], seg.Vals[i]); err != nil {
			return nil, err
		}
	}
	return mb.Build(), nil
}

// readSegment fetches and checksums one segment blob. Size and checksum
// must match the manifest before any byte of it is decoded.
func readSegment(ctx context.Context, store blobstore.BlobStore, p Partition, rc *resource.Controller) ([]byte, error) {
	b, err := store.Open(ctx, p.Blob)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if b.Size() != p.Bytes {
		return nil, &CorruptError{
			Blob:   p.Blob,
			Reason: fmt.Sprintf("blob is %d bytes, manifest says %d", b.Size(), p.Bytes),
		}
	}

	data := make([]byte, p.Bytes)
	r := resource.NewLimitedReader(ctx, rc, io.NewSectionReader(b, 0, p.Bytes))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	if sum := hash.CRC32C(data); sum != p.CRC32C {
		return nil, &CorruptError{
			Blob:   p.Blob,
			Reason: fmt.Sprintf("checksum %08x does not match manifest %08x", sum, p.CRC32C),
		}
	}
	return data, nil
}
