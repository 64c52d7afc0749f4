// Package catalog records published snapshots in a DynamoDB table.
//
// A blob store holds one CURRENT snapshot; the catalog is the ledger across
// stores and over time. Recording an entry after each snapshot.Save gives
// operators a queryable history per collection: which snapshots exist, how
// big they are, and which manifest to hand to snapshot.Load when rolling
// back.
//
// Table schema:
//   - Partition key: collection (string)
//   - Sort key: manifest_id (string)
//
// Manifest IDs sort lexicographically by creation time, so a descending
// query on the sort key lists snapshots newest first. Create the table
// with:
//
//	aws dynamodb create-table \
//	  --table-name geoshard-catalog \
//	  --attribute-definitions AttributeName=collection,AttributeType=S AttributeName=manifest_id,AttributeType=S \
//	  --key-schema AttributeName=collection,KeyType=HASH AttributeName=manifest_id,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/geoshard/geoshard/snapshot"
)

// DDBClient is the subset of the DynamoDB API the catalog uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var (
	// ErrNotFound is returned when the catalog holds no matching entry.
	ErrNotFound = errors.New("snapshot not in catalog")

	// ErrAlreadyRecorded is returned when an entry with the same manifest
	// ID exists. Entries are immutable once written.
	ErrAlreadyRecorded = errors.New("snapshot already recorded")
)

// Entry is one catalog row describing a published snapshot.
type Entry struct {
	// Collection names the logical collection the snapshot belongs to,
	// conventionally the store location like "s3://bucket/places".
	Collection string `dynamodbav:"collection"`

	// ManifestID is the snapshot's manifest ID, unique per collection.
	ManifestID string `dynamodbav:"manifest_id"`

	// Manifest is the manifest blob name inside the snapshot's store.
	Manifest string `dynamodbav:"manifest"`

	// SavedAt is the manifest creation time in Unix seconds.
	SavedAt int64 `dynamodbav:"saved_at"`

	Docs       int   `dynamodbav:"docs"`
	Partitions int   `dynamodbav:"partitions"`
	Bytes      int64 `dynamodbav:"bytes"`
}

// EntryFor builds the catalog entry for a freshly saved manifest.
func EntryFor(collection string, m *snapshot.Manifest) Entry {
	return Entry{
		Collection: collection,
		ManifestID: m.ID,
		Manifest:   m.Name(),
		SavedAt:    m.CreatedAt.Unix(),
		Docs:       m.Docs,
		Partitions: len(m.Partitions),
		Bytes:      m.TotalBytes(),
	}
}

// Catalog reads and writes snapshot entries in one DynamoDB table.
type Catalog struct {
	ddb   DDBClient
	table string
}

// New returns a catalog backed by the given table.
func New(ddb DDBClient, tableName string) *Catalog {
	return &Catalog{
		ddb:   ddb,
		table: tableName,
	}
}

// Record writes the entry. Entries are write-once: recording a manifest ID
// twice fails with ErrAlreadyRecorded.
func (c *Catalog) Record(ctx context.Context, e Entry) error {
	if e.Collection == "" || e.ManifestID == "" {
		return errors.New("catalog entry needs a collection and a manifest ID")
	}

	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal catalog entry: %w", err)
	}

	_, err = c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(manifest_id)"),
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrAlreadyRecorded
		}
		return fmt.Errorf("record snapshot %s: %w", e.ManifestID, err)
	}
	return nil
}

// Latest returns the newest entry for the collection.
func (c *Catalog) Latest(ctx context.Context, collection string) (Entry, error) {
	entries, err := c.list(ctx, collection, 1)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// List returns the collection's entries, newest first. A non-positive
// limit returns one query page of entries.
func (c *Catalog) List(ctx context.Context, collection string, limit int) ([]Entry, error) {
	return c.list(ctx, collection, limit)
}

// Get returns the entry for one manifest ID.
func (c *Catalog) Get(ctx context.Context, collection, manifestID string) (Entry, error) {
	resp, err := c.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key:       c.key(collection, manifestID),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("get snapshot %s: %w", manifestID, err)
	}
	if len(resp.Item) == 0 {
		return Entry{}, ErrNotFound
	}

	var e Entry
	if err := attributevalue.UnmarshalMap(resp.Item, &e); err != nil {
		return Entry{}, fmt.Errorf("unmarshal catalog entry: %w", err)
	}
	return e, nil
}

// Remove deletes the entry. The snapshot blobs themselves are not touched;
// pair with snapshot.Delete to reclaim the store. Removing an absent entry
// is not an error.
func (c *Catalog) Remove(ctx context.Context, collection, manifestID string) error {
	_, err := c.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.table),
		Key:       c.key(collection, manifestID),
	})
	if err != nil {
		return fmt.Errorf("remove snapshot %s: %w", manifestID, err)
	}
	return nil
}

func (c *Catalog) list(ctx context.Context, collection string, limit int) ([]Entry, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("#coll = :coll"),
		ExpressionAttributeNames: map[string]string{
			"#coll": "collection",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":coll": &ddbtypes.AttributeValueMemberS{Value: collection},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	resp, err := c.ddb.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}

	var entries []Entry
	if err := attributevalue.UnmarshalListOfMaps(resp.Items, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal catalog entries: %w", err)
	}
	return entries, nil
}

func (c *Catalog) key(collection, manifestID string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"collection":  &ddbtypes.AttributeValueMemberS{Value: collection},
		"manifest_id": &ddbtypes.AttributeValueMemberS{Value: manifestID},
	}
}
