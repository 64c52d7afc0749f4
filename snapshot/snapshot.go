// Package snapshot persists collections to a blob store and loads them
// back.
//
// A snapshot is one segment blob per partition plus a manifest naming them,
// published by pointing the store's CURRENT blob at the manifest. Segments
// hold the raw documents encoded with the collection's codec and compressed;
// loading re-derives geometry and fields through the caller's conversion
// functions and rebuilds each partition index, so the partition layout of
// the saved collection is reproduced exactly.
//
// Blobs are write-once and the CURRENT swap is the only mutation, so a save
// that fails midway leaves the previous snapshot intact. Stores whose
// backend cannot swap CURRENT atomically can layer one that does, like the
// DynamoDB-backed commit store in blobstore/s3.
package snapshot

import (
	"runtime"

	"github.com/geoshard/geoshard/codec"
	"github.com/geoshard/geoshard/resource"
)

// Options configures Save and Load.
type Options struct {
	// Codec encodes segment documents. Save defaults to the collection's
	// codec; Load ignores it and uses the codec named in the manifest.
	Codec codec.Codec

	// Compression is the segment compression Save applies. The default is
	// Zstd. Load ignores it and uses the compression named in the manifest.
	Compression Compression

	// Resources throttles segment reads and writes through the controller's
	// IO budget. Nil enforces nothing.
	Resources *resource.Controller

	// Parallelism bounds how many segments are in flight at once.
	// Non-positive selects GOMAXPROCS.
	Parallelism int
}

// WithCodec overrides the codec segments are encoded with on Save.
func WithCodec(c codec.Codec) func(*Options) {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithCompression selects the segment compression for Save.
func WithCompression(c Compression) func(*Options) {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithResources throttles snapshot IO through the controller.
func WithResources(rc *resource.Controller) func(*Options) {
	return func(o *Options) {
		o.Resources = rc
	}
}

// WithParallelism bounds concurrent segment transfers.
func WithParallelism(n int) func(*Options) {
	return func(o *Options) {
		o.Parallelism = n
	}
}

func applyOptions(optFns []func(*Options)) Options {
	opts := Options{
		Compression: Zstd,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	return opts
}

func (o Options) parallelism() int {
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}
