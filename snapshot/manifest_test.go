package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestIDsOrderByTime(t *testing.T) {
	now := time.Now()

	// Same-instant IDs stay distinct and ordered by sequence; later
	// instants always sort after earlier ones.
	a := newManifestID(now)
	b := newManifestID(now)
	c := newManifestID(now.Add(time.Second))

	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestBlobNames(t *testing.T) {
	m := Manifest{ID: "0000018f-0001"}

	assert.Equal(t, "MANIFEST-0000018f-0001.json", m.Name())
	assert.Equal(t, "part-0000018f-0001-00003.seg", segmentName(m.ID, 3))
}

func TestManifestValidate(t *testing.T) {
	valid := Manifest{
		Version: manifestVersion,
		ID:      "test",
		Partitions: []Partition{
			{Ord: 1, Blob: "b"},
			{Ord: 0, Blob: "a"},
		},
	}
	require.NoError(t, valid.validate())

	missing := valid
	missing.Partitions = []Partition{{Ord: 0, Blob: "a"}, {Ord: 2, Blob: "c"}}
	var cerr *CorruptError
	require.ErrorAs(t, missing.validate(), &cerr)
}

func TestManifestTotalBytes(t *testing.T) {
	m := Manifest{Partitions: []Partition{{Bytes: 10}, {Bytes: 32}}}
	assert.Equal(t, int64(42), m.TotalBytes())
}
