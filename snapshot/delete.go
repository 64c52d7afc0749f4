package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/geoshard/geoshard/blobstore"
)

// Delete removes the current snapshot from the store: every segment blob,
// the manifest, and finally the CURRENT pointer. The pointer goes last so
// that a partially failed delete stays visible and can be retried. A store
// without a snapshot is not an error.
func Delete(ctx context.Context, store blobstore.BlobStore) error {
	if store == nil {
		return errors.New("snapshot: store is nil")
	}

	m, err := Current(ctx, store)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil
		}
		return err
	}

	var errs []error
	for _, p := range m.Partitions {
		if err := store.Delete(ctx, p.Blob); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete segment %q: %w", p.Blob, err))
		}
	}
	if err := store.Delete(ctx, m.Name()); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		errs = append(errs, fmt.Errorf("delete manifest %q: %w", m.Name(), err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return store.Delete(ctx, blobstore.Current)
}
