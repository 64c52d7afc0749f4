package catalog

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoshard/geoshard/snapshot"
)

// mockDDBClient is an in-memory DynamoDB stand-in.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]ddbtypes.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]ddbtypes.AttributeValue),
	}
}

func itemString(item map[string]ddbtypes.AttributeValue, attr string) string {
	s, _ := item[attr].(*ddbtypes.AttributeValueMemberS)
	if s == nil {
		return ""
	}
	return s.Value
}

func itemKey(item map[string]ddbtypes.AttributeValue) string {
	return itemString(item, "collection") + ":" + itemString(item, "manifest_id")
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := itemKey(params.Item)
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(manifest_id)" {
		if _, exists := m.items[key]; exists {
			return nil, &ddbtypes.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if item, ok := m.items[itemKey(params.Key)]; ok {
		return &dynamodb.GetItemOutput{Item: item}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := params.ExpressionAttributeValues[":coll"].(*ddbtypes.AttributeValueMemberS).Value

	var items []map[string]ddbtypes.AttributeValue
	for _, item := range m.items {
		if itemString(item, "collection") == coll {
			items = append(items, item)
		}
	}

	// Sort key descending, as ScanIndexForward=false requests.
	sort.Slice(items, func(i, j int) bool {
		return itemString(items[i], "manifest_id") > itemString(items[j], "manifest_id")
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func (m *mockDDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func testManifest(id string, docs int) *snapshot.Manifest {
	return &snapshot.Manifest{
		Version:     1,
		ID:          id,
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
		Codec:       "go-json",
		Compression: "zstd",
		Metric:      "Haversine",
		Docs:        docs,
		Partitions: []snapshot.Partition{
			{Ord: 0, Blob: "part-" + id + "-00000.seg", Docs: docs, Bytes: 128},
		},
	}
}

func TestEntryFor(t *testing.T) {
	m := testManifest("0001-aaaa", 7)
	e := EntryFor("s3://bucket/places", m)

	assert.Equal(t, "s3://bucket/places", e.Collection)
	assert.Equal(t, "0001-aaaa", e.ManifestID)
	assert.Equal(t, m.Name(), e.Manifest)
	assert.Equal(t, int64(1700000000), e.SavedAt)
	assert.Equal(t, 7, e.Docs)
	assert.Equal(t, 1, e.Partitions)
	assert.Equal(t, int64(128), e.Bytes)
}

func TestCatalogRecordAndGet(t *testing.T) {
	ctx := context.Background()
	cat := New(newMockDDBClient(), "geoshard-catalog")

	e := EntryFor("places", testManifest("0001-aaaa", 7))
	require.NoError(t, cat.Record(ctx, e))

	got, err := cat.Get(ctx, "places", "0001-aaaa")
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = cat.Get(ctx, "places", "9999-zzzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRecordIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	cat := New(newMockDDBClient(), "geoshard-catalog")

	e := EntryFor("places", testManifest("0001-aaaa", 7))
	require.NoError(t, cat.Record(ctx, e))

	err := cat.Record(ctx, e)
	assert.ErrorIs(t, err, ErrAlreadyRecorded)
}

func TestCatalogRecordRejectsEmptyKeys(t *testing.T) {
	ctx := context.Background()
	cat := New(newMockDDBClient(), "geoshard-catalog")

	err := cat.Record(ctx, Entry{ManifestID: "0001"})
	require.Error(t, err)

	err = cat.Record(ctx, Entry{Collection: "places"})
	require.Error(t, err)
}

func TestCatalogLatestAndList(t *testing.T) {
	ctx := context.Background()
	cat := New(newMockDDBClient(), "geoshard-catalog")

	for _, id := range []string{"0001-aaaa", "0002-bbbb", "0003-cccc"} {
		require.NoError(t, cat.Record(ctx, EntryFor("places", testManifest(id, 7))))
	}
	require.NoError(t, cat.Record(ctx, EntryFor("roads", testManifest("0009-xxxx", 3))))

	latest, err := cat.Latest(ctx, "places")
	require.NoError(t, err)
	assert.Equal(t, "0003-cccc", latest.ManifestID)

	entries, err := cat.List(ctx, "places", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "0003-cccc", entries[0].ManifestID)
	assert.Equal(t, "0001-aaaa", entries[2].ManifestID)

	entries, err = cat.List(ctx, "places", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = cat.Latest(ctx, "pois")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRemove(t *testing.T) {
	ctx := context.Background()
	cat := New(newMockDDBClient(), "geoshard-catalog")

	require.NoError(t, cat.Record(ctx, EntryFor("places", testManifest("0001-aaaa", 7))))
	require.NoError(t, cat.Remove(ctx, "places", "0001-aaaa"))

	_, err := cat.Get(ctx, "places", "0001-aaaa")
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing again is fine.
	require.NoError(t, cat.Remove(ctx, "places", "0001-aaaa"))
}
