package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/geoshard/geoshard/blobstore"
)

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// ErrConcurrentCommit is returned when another writer committed the same
// version first.
var ErrConcurrentCommit = errors.New("concurrent snapshot commit detected")

// CommitStore implements blobstore.BlobStore backed by S3, with DynamoDB
// supplying the atomic pointer swap that S3 lacks. Segment and manifest
// blobs pass through to S3 untouched; reads and writes of the well-known
// CURRENT name are redirected to a DynamoDB commit log, so concurrent
// snapshot writers race on a conditional put instead of silently
// overwriting each other.
//
// Table schema:
//   - Partition key: base_uri (string), the s3://bucket/prefix this store
//     writes under
//   - Sort key: version (number), monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name geoshard-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	store     *Store
	ddb       DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore wraps an S3 store with a DynamoDB commit log. baseURI is
// the partition key, conventionally "s3://bucket/prefix".
func NewCommitStore(store *Store, ddb DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		store:     store,
		ddb:       ddb,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Open opens a blob. For CURRENT the latest committed manifest name is
// served from DynamoDB.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != blobstore.Current {
		return s.store.Open(ctx, name)
	}

	version, manifest, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return &pointerBlob{content: []byte(manifest)}, nil
}

// Create passes through to S3. CURRENT is write-once-per-version and goes
// through Put.
func (s *CommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return s.store.Create(ctx, name)
}

// Put writes a blob. Writing CURRENT commits the content as the next
// version; when another writer won the race, ErrConcurrentCommit is
// returned and the pointer is left on the winner's manifest.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name != blobstore.Current {
		return s.store.Put(ctx, name, data)
	}
	return s.commit(ctx, string(data))
}

// Delete passes through to S3.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// List passes through to S3.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.store.List(ctx, prefix)
}

// Latest returns the newest committed version and its manifest name.
// Version 0 with an empty name means nothing has been committed.
func (s *CommitStore) Latest(ctx context.Context) (uint64, string, error) {
	return s.latest(ctx)
}

// Manifest returns the manifest name committed as the given version,
// allowing older snapshots to be loaded. Returns blobstore.ErrNotFound for
// unknown or pruned versions.
func (s *CommitStore) Manifest(ctx context.Context, version uint64) (string, error) {
	resp, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.itemKey(version),
	})
	if err != nil {
		return "", fmt.Errorf("get version %d: %w", version, err)
	}
	if resp.Item == nil {
		return "", blobstore.ErrNotFound
	}

	manifest, ok := resp.Item["manifest_name"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return "", errors.New("malformed manifest_name attribute")
	}
	return manifest.Value, nil
}

// PruneVersions deletes commit log entries older than the newest keep
// versions. The manifests and segments themselves are not touched.
func (s *CommitStore) PruneVersions(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}

	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("query commit log: %w", err)
	}

	for i, item := range resp.Items {
		if i < keep {
			continue
		}

		versionAttr, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
		if !ok {
			return errors.New("malformed version attribute")
		}
		version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("parse version: %w", err)
		}

		if _, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       s.itemKey(version),
		}); err != nil {
			return fmt.Errorf("delete version %d: %w", version, err)
		}
	}

	return nil
}

func (s *CommitStore) itemKey(version uint64) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"base_uri": &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
		"version":  &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
	}
}

func (s *CommitStore) latest(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commit log: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("malformed version attribute")
	}
	manifestAttr, ok := item["manifest_name"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("malformed manifest_name attribute")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse version: %w", err)
	}

	return version, manifestAttr.Value, nil
}

func (s *CommitStore) commit(ctx context.Context, manifest string) error {
	current, _, err := s.latest(ctx)
	if err != nil {
		return err
	}

	item := s.itemKey(current + 1)
	item["manifest_name"] = &ddbtypes.AttributeValueMemberS{Value: manifest}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentCommit
		}
		return fmt.Errorf("commit version %d: %w", current+1, err)
	}

	return nil
}

// pointerBlob serves the CURRENT content resolved from the commit log.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error {
	return nil
}

func (b *pointerBlob) Size() int64 {
	return int64(len(b.content))
}

func (b *pointerBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
