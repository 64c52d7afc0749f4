package geoshard

// Close releases the partitions and the collection's owned worker pool.
// A runner supplied through Builder.Runner is left open for its owner.
// Close is idempotent; afterwards every operation fails with ErrClosed.
func (c *Collection[K, V]) Close() error {
	return translateError(c.coord.Close())
}
