package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Current is the well-known blob name that points at the latest snapshot
// manifest. Stores with stronger primitives may intercept reads and writes
// of this name to provide atomic pointer swaps.
const Current = "CURRENT"

// BlobStore is an abstraction for storing immutable data blobs (snapshot
// segments and manifests). Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create starts a streaming write. The blob becomes visible to Open
	// only after Close returns nil.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a small blob in one call, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a streaming write handle. Writes are not visible to
// readers until Close returns nil.
type WritableBlob interface {
	io.Writer
	io.Closer

	// Sync flushes buffered data to durable storage where the backend
	// supports it.
	Sync() error
}

// Mappable is an optional interface for Blobs that support memory mapping.
type Mappable interface {
	// Bytes returns the underlying byte slice. The slice is valid until
	// the Blob is closed. This is a zero-copy operation if supported.
	Bytes() ([]byte, error)
}

// Aborter is an optional interface for WritableBlobs that can discard an
// in-progress write. Writers should abort rather than Close after a failed
// write so no partial blob is published.
type Aborter interface {
	Abort()
}

// Discard throws away an in-progress write. It aborts when the blob
// supports it and falls back to Close otherwise.
func Discard(w WritableBlob) {
	if a, ok := w.(Aborter); ok {
		a.Abort()
		return
	}
	_ = w.Close()
}
