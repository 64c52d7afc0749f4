package snapshot

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geoshard/geoshard"
	"github.com/geoshard/geoshard/blobstore"
	"github.com/geoshard/geoshard/codec"
	"github.com/geoshard/geoshard/internal/hash"
	"github.com/geoshard/geoshard/resource"
)

// segment is the persisted form of one partition: the documents in indexing
// order, encoded with the snapshot's codec. Keys and values must round-trip
// through that codec.
type segment[K cmp.Ordered, V any] struct {
	Keys []K `json:"keys"`
	Vals []V `json:"vals"`
}

// Save persists the collection to the store and returns the published
// manifest. Segments are written in parallel; the snapshot becomes visible
// only when the final CURRENT swap succeeds, so a failed save never damages
// a previously published one.
func Save[K cmp.Ordered, V any](ctx context.Context, coll *geoshard.Collection[K, V], store blobstore.BlobStore, optFns ...func(*Options)) (*Manifest, error) {
	if coll == nil {
		return nil, errors.New("snapshot: nil collection")
	}
	if store == nil {
		return nil, errors.New("snapshot: nil store")
	}

	start := time.Now()
	opts := applyOptions(optFns)

	m, err := save(ctx, coll, store, opts)

	var bytes int64
	if m != nil {
		bytes = m.TotalBytes()
	}
	coll.Metrics().RecordSnapshotSave(coll.Partitions(), bytes, time.Since(start), err)
	id := ""
	if m != nil {
		id = m.ID
	}
	coll.Logger().LogSnapshot(ctx, "save", id, err)

	if err != nil {
		return nil, err
	}
	return m, nil
}

func save[K cmp.Ordered, V any](ctx context.Context, coll *geoshard.Collection[K, V], store blobstore.BlobStore, opts Options) (*Manifest, error) {
	// Count also rejects closed collections before any blob is written.
	docs, err := coll.Count(ctx)
	if err != nil {
		return nil, err
	}

	enc := opts.Codec
	if enc == nil {
		enc = coll.Codec()
	}

	now := time.Now().UTC()
	m := &Manifest{
		Version:     manifestVersion,
		ID:          newManifestID(now),
		CreatedAt:   now,
		Codec:       enc.Name(),
		Compression: opts.Compression.String(),
		Metric:      coll.Metric().String(),
		Docs:        docs,
		Partitions:  make([]Partition, coll.Partitions()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.parallelism())
	for ord := range coll.Partitions() {
		g.Go(func() error {
			info, err := writeSegment(gctx, coll, store, enc, opts, m.ID, ord)
			if err != nil {
				return fmt.Errorf("partition %d: %w", ord, err)
			}
			m.Partitions[ord] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		discardSegments(ctx, store, m)
		return nil, err
	}

	if err := writeManifest(ctx, store, m); err != nil {
		discardSegments(ctx, store, m)
		return nil, err
	}
	return m, nil
}

func writeSegment[K cmp.Ordered, V any](ctx context.Context, coll *geoshard.Collection[K, V], store blobstore.BlobStore, enc codec.Codec, opts Options, id string, ord int) (Partition, error) {
	var seg segment[K, V]
	for k, v := range coll.PartitionDocs(ord) {
		seg.Keys = append(seg.Keys, k)
		seg.Vals = append(seg.Vals, v)
	}

	data, err := enc.Marshal(seg)
	if err != nil {
		return Partition{}, fmt.Errorf("encode segment: %w", err)
	}
	blob, err := compress(data, opts.Compression)
	if err != nil {
		return Partition{}, fmt.Errorf("compress segment: %w", err)
	}

	name := segmentName(id, ord)
	w, err := store.Create(ctx, name)
	if err != nil {
		return Partition{}, err
	}
	if _, err := resource.NewLimitedWriter(ctx, opts.Resources, w).Write(blob); err != nil {
		blobstore.Discard(w)
		return Partition{}, err
	}
	if err := w.Close(); err != nil {
		return Partition{}, err
	}

	return Partition{
		Ord:    ord,
		Blob:   name,
		Docs:   len(seg.Keys),
		Bytes:  int64(len(blob)),
		CRC32C: hash.CRC32C(blob),
	}, nil
}

// discardSegments removes whatever this save already wrote. Best effort:
// the snapshot was never published, so leftovers are orphans, not damage.
func discardSegments(ctx context.Context, store blobstore.BlobStore, m *Manifest) {
	for ord := range m.Partitions {
		_ = store.Delete(ctx, segmentName(m.ID, ord))
	}
	_ = store.Delete(ctx, m.Name())
}
