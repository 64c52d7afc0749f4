package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/geoshard/geoshard/blobstore"
)

// manifestVersion is the manifest format version this package writes and
// accepts.
const manifestVersion = 1

// Manifest describes one persisted snapshot: the collection's shape and the
// segment blob per partition. Manifests are plain JSON regardless of the
// segment codec, so any snapshot can be inspected before decoding it.
type Manifest struct {
	Version     int         `json:"version"`
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	Codec       string      `json:"codec"`
	Compression string      `json:"compression"`
	Metric      string      `json:"metric"`
	Docs        int         `json:"docs"`
	Partitions  []Partition `json:"partitions"`
}

// Partition names one partition's segment blob and the checksum that
// guards it.
type Partition struct {
	Ord    int    `json:"ord"`
	Blob   string `json:"blob"`
	Docs   int    `json:"docs"`
	Bytes  int64  `json:"bytes"`
	CRC32C uint32 `json:"crc32c"`
}

// Name returns the manifest's blob name.
func (m *Manifest) Name() string {
	return manifestName(m.ID)
}

// TotalBytes sums the segment sizes.
func (m *Manifest) TotalBytes() int64 {
	var total int64
	for _, p := range m.Partitions {
		total += p.Bytes
	}
	return total
}

// validate checks the structural invariants load depends on: a known
// version and partition ordinals forming exactly [0, n).
func (m *Manifest) validate() error {
	if m.Version != manifestVersion {
		return fmt.Errorf("unsupported manifest version %d (expected %d)", m.Version, manifestVersion)
	}
	seen := make([]bool, len(m.Partitions))
	for _, p := range m.Partitions {
		if p.Ord < 0 || p.Ord >= len(m.Partitions) || seen[p.Ord] {
			return &CorruptError{
				Blob:   m.Name(),
				Reason: fmt.Sprintf("partition ordinal %d out of place among %d partitions", p.Ord, len(m.Partitions)),
			}
		}
		seen[p.Ord] = true
	}
	return nil
}

// CorruptError reports a snapshot blob whose content cannot be trusted:
// checksum mismatch, truncation, or a manifest that contradicts itself.
type CorruptError struct {
	Blob   string
	Reason string
}

// Error returns the error message naming the corrupt blob.
func (e *CorruptError) Error() string {
	return fmt.Sprintf("snapshot blob %q corrupt: %s", e.Blob, e.Reason)
}

// manifestSeq disambiguates manifests created in the same nanosecond.
var manifestSeq atomic.Uint32

// newManifestID returns a fresh manifest identifier. IDs order
// lexicographically by creation time, which the catalog relies on.
func newManifestID(now time.Time) string {
	return fmt.Sprintf("%016x-%04x", uint64(now.UnixNano()), manifestSeq.Add(1)&0xffff)
}

func manifestName(id string) string {
	return "MANIFEST-" + id + ".json"
}

func segmentName(id string, ord int) string {
	return fmt.Sprintf("part-%s-%05d.seg", id, ord)
}

// Current reads the store's CURRENT pointer and the manifest it names.
// A store holding no snapshot fails with blobstore.ErrNotFound.
func Current(ctx context.Context, store blobstore.BlobStore) (*Manifest, error) {
	name, err := readAll(ctx, store, blobstore.Current)
	if err != nil {
		return nil, err
	}

	data, err := readAll(ctx, store, string(name))
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", string(name), err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &CorruptError{Blob: string(name), Reason: err.Error()}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// writeManifest publishes the manifest blob and swaps CURRENT to it.
func writeManifest(ctx context.Context, store blobstore.BlobStore, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := store.Put(ctx, m.Name(), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := store.Put(ctx, blobstore.Current, []byte(m.Name())); err != nil {
		return fmt.Errorf("publish manifest: %w", err)
	}
	return nil
}

func readAll(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data := make([]byte, b.Size())
	if _, err := io.ReadFull(io.NewSectionReader(b, 0, b.Size()), data); err != nil {
		return nil, err
	}
	return data, nil
}
