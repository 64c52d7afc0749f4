package cache

// Key identifies a cached block within a named blob.
type Key struct {
	// Path is the blob name within its store.
	Path string
	// Block is the block index within the blob.
	Block uint64
}

// BlockCache is a byte-oriented cache for immutable blocks. Returned slices
// must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok is false on a miss.
	Get(key Key) (b []byte, ok bool)

	// Set caches a block. The cache retains b, so the caller must not
	// modify it afterwards.
	Set(key Key, b []byte)

	// Invalidate removes all entries matching the predicate.
	Invalidate(predicate func(key Key) bool)

	// Stats returns cumulative hit and miss counts.
	Stats() (hits, misses int64)

	// Close releases any resources held by the cache.
	Close() error
}
