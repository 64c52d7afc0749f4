package geoshard

import (
	"errors"
	"fmt"

	"github.com/geoshard/geoshard/engine"
	"github.com/geoshard/geoshard/index"
)

var (
	// ErrNotFound is returned by terminal queries that require a result.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned by every operation on a closed Collection.
	ErrClosed = errors.New("collection closed")

	// ErrInvalidShards is returned when the builder's shard count is below 1.
	ErrInvalidShards = errors.New("shard count must be at least 1")

	// ErrNilShapeFunc is returned when the builder has no shape function.
	ErrNilShapeFunc = errors.New("shape function must not be nil")

	// ErrNilPositionFunc is returned by Link when the position function is
	// nil.
	ErrNilPositionFunc = errors.New("position function must not be nil")

	// ErrEmptyQuery is returned by the fluent query when neither a position,
	// a region nor a text query was given.
	ErrEmptyQuery = errors.New("query needs a position, region, or text")
)

// translateError maps internal errors onto the public sentinels while
// keeping the original chain reachable through errors.Is/As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, engine.ErrClosed) || errors.Is(err, index.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
