package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// testLifecycle runs the BlobStore contract against an implementation.
func testLifecycle(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing.seg")
	require.ErrorIs(t, err, ErrNotFound)

	data := []byte("hello world, this is a segment payload")

	w, err := store.Create(ctx, "snapshots/s1/part-00000.seg")
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "snapshots/s1/part-00000.seg")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	// A short read at the tail returns EOF along with the bytes that exist.
	tail := make([]byte, 16)
	n, err = blob.ReadAt(tail, blob.Size()-7)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 7, n)
	require.Equal(t, "payload", string(tail[:7]))

	// Blobs compose with io.SectionReader for streaming decode.
	section := io.NewSectionReader(blob, 6, 5)
	got, err := io.ReadAll(section)
	require.NoError(t, err)
	require.Equal(t, "world", string(got))

	require.NoError(t, blob.Close())

	require.NoError(t, store.Put(ctx, "snapshots/s1/MANIFEST.json", []byte(`{"id":"s1"}`)))
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("s1")))

	names, err := store.List(ctx, "snapshots/s1/")
	require.NoError(t, err)
	require.Equal(t, []string{"snapshots/s1/MANIFEST.json", "snapshots/s1/part-00000.seg"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"CURRENT", "snapshots/s1/MANIFEST.json", "snapshots/s1/part-00000.seg"}, all)

	require.NoError(t, store.Delete(ctx, "snapshots/s1/part-00000.seg"))
	require.NoError(t, store.Delete(ctx, "snapshots/s1/part-00000.seg"))

	_, err = store.Open(ctx, "snapshots/s1/part-00000.seg")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	testLifecycle(t, NewMemoryStore())
}

func TestLocalStoreLifecycle(t *testing.T) {
	testLifecycle(t, NewLocalStore(t.TempDir()))
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("immutable")
	require.NoError(t, store.Put(ctx, "blob", data))

	// Mutating the caller's slice must not reach the store.
	data[0] = 'X'

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	got := make([]byte, blob.Size())
	_, err = blob.ReadAt(got, 0)
	require.NoError(t, err)
	require.Equal(t, "immutable", string(got))
}

func TestMemoryStoreAbort(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "doomed")
	require.NoError(t, err)
	_, err = w.Write([]byte("scrap"))
	require.NoError(t, err)

	Discard(w)

	_, err = store.Open(ctx, "doomed")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreMappable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "blob", []byte("mapped bytes")))

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)

	b, err := m.Bytes()
	require.NoError(t, err)
	require.Equal(t, "mapped bytes", string(b))
}
