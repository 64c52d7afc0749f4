// Package engine executes queries across partitions: fan-out of one query
// to every partition's local index, bounded per-partition results, and the
// order-independent top-k merge into one global result.
//
// Partitions never talk to each other. A query task sees only its own
// partition plus the broadcast query arguments, and the only synchronization
// point is the reduction over the immutable per-partition accumulators.
package engine

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/geoshard/geoshard/index"
)

// ErrClosed is returned by operations on a closed Coordinator or PoolRunner.
var ErrClosed = errors.New("engine: closed")

// Partition pairs a partition ordinal with its local index.
type Partition[K cmp.Ordered, V any] struct {
	Ord   int
	Local index.Local[K, V]
}

// PartitionError attributes a failure to the partition that produced it.
type PartitionError struct {
	Partition int
	Err       error
}

// Error returns the error message with the partition named.
func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %d: %v", e.Partition, e.Err)
}

// Unwrap returns the underlying partition failure.
func (e *PartitionError) Unwrap() error { return e.Err }
