// Package s3 provides an Amazon S3 implementation of the
// blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    return err
//	}
//
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "collections/cities")
//	manifest, err := snapshot.Save(ctx, coll, store)
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads with CRC32C checksums for large segments
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//
// # Concurrent writers
//
// S3 cannot compare-and-swap the CURRENT pointer. Wrap the store in a
// CommitStore to route pointer updates through a DynamoDB commit log when
// multiple writers may publish snapshots concurrently.
package s3
