package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/geoshard/geoshard/internal/cache"
	"golang.org/x/sync/errgroup"
)

// DefaultBlockSize is the read granularity of a CachingStore.
const DefaultBlockSize = 4096

// CachingStore wraps a BlobStore with block-level read caching. It pays off
// in front of remote stores, where loading a snapshot twice or probing the
// same manifest repeatedly would otherwise refetch every byte.
type CachingStore struct {
	inner     BlobStore
	blocks    cache.BlockCache
	blockSize int64
}

// NewCachingStore wraps inner with the given block cache. blockSize
// defaults to DefaultBlockSize if <= 0.
func NewCachingStore(inner BlobStore, blocks cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		blocks:    blocks,
		blockSize: blockSize,
	}
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{
		inner:     b,
		blocks:    s.blocks,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Create passes through. Blobs are write-once, so a new name cannot have
// stale cache entries.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.inner.Create(ctx, name)
}

// Put invalidates any cached blocks for the name before writing.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.blocks.Invalidate(func(key cache.Key) bool { return key.Path == name })
	return s.inner.Put(ctx, name, data)
}

// Delete invalidates any cached blocks for the name before deleting.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.blocks.Invalidate(func(key cache.Key) bool { return key.Path == name })
	return s.inner.Delete(ctx, name)
}

// List passes through.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// cachingBlob assembles reads from cached blocks, fetching missing runs
// from the inner blob in coalesced parallel reads.
type cachingBlob struct {
	inner     Blob
	blocks    cache.BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) Close() error {
	return b.inner.Close()
}

func (b *cachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *cachingBlob) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, errors.New("blobstore: negative read offset")
	}
	if off >= b.inner.Size() {
		return 0, io.EOF
	}

	first := off / b.blockSize
	last := (off + int64(len(p)) - 1) / b.blockSize

	if err := b.fill(first, last); err != nil {
		return 0, err
	}

	total := 0
	for blk := first; blk <= last; blk++ {
		data, err := b.block(blk)
		if err != nil {
			return total, err
		}

		blkStart := blk * b.blockSize
		lo := max(blkStart, off)
		hi := min(blkStart+int64(len(data)), off+int64(len(p)))
		if hi <= lo {
			break
		}

		total += copy(p[lo-off:hi-off], data[lo-blkStart:])
	}

	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fill loads the missing blocks in [first, last] into the cache. Adjacent
// misses coalesce into a single inner read per run.
func (b *cachingBlob) fill(first, last int64) error {
	type run struct{ start, count int64 }

	var missing []run
	for blk := first; blk <= last; blk++ {
		if _, ok := b.blocks.Get(b.key(blk)); ok {
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
		} else {
			missing = append(missing, run{start: blk, count: 1})
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(16)

	for _, r := range missing {
		g.Go(func() error {
			start := r.start * b.blockSize
			length := r.count * b.blockSize

			size := b.inner.Size()
			if start >= size {
				return nil
			}
			if start+length > size {
				length = size - start
			}

			buf := make([]byte, length)
			n, err := b.inner.ReadAt(buf, start)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]

			for i := range r.count {
				lo := i * b.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+b.blockSize, int64(len(buf)))

				// Copy so the cache entry does not pin the whole run
				// buffer.
				block := make([]byte, hi-lo)
				copy(block, buf[lo:hi])
				b.blocks.Set(b.key(r.start+i), block)
			}
			return nil
		})
	}

	return g.Wait()
}

// block returns one block, rereading from the inner blob if the cache
// evicted it between fill and assembly.
func (b *cachingBlob) block(blk int64) ([]byte, error) {
	if data, ok := b.blocks.Get(b.key(blk)); ok {
		return data, nil
	}

	start := blk * b.blockSize
	length := min(b.blockSize, b.inner.Size()-start)
	if length <= 0 {
		return nil, nil
	}

	buf := make([]byte, length)
	n, err := b.inner.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	buf = buf[:n]

	if n > 0 {
		b.blocks.Set(b.key(blk), buf)
	}
	return buf, nil
}

func (b *cachingBlob) key(blk int64) cache.Key {
	return cache.Key{Path: b.name, Block: uint64(blk)}
}
