// Package blobstore provides storage abstraction for immutable snapshot
// blobs (partition segments, manifests, the CURRENT pointer).
//
// BlobStore is the interface the snapshot package reads and writes
// through. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests
//   - LocalStore: local filesystem with mmap reads and atomic renames
//   - CachingStore: block-level read cache in front of another store
//   - s3.Store: Amazon S3 with range reads and managed parallel uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Custom Implementations
//
// Implement the BlobStore interface to support other backends. Blobs are
// written once and never modified, so backends only need atomic
// create-then-publish semantics, not random writes.
package blobstore
