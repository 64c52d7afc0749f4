package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/geoshard/geoshard/internal/hash"
)

// UploadConfig tunes how segment blobs are written to S3.
type UploadConfig struct {
	// PartSize is the part size for multipart uploads.
	// Default: 8MB, larger than the SDK default of 5MB, which suits
	// partition segments.
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5, the SDK default.
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation on every write.
	// Default: true.
	EnableChecksum bool

	// LeavePartsOnError keeps uploaded parts around after a failed
	// multipart upload instead of aborting it.
	// Default: false.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:          8 * 1024 * 1024,
		Concurrency:       5,
		EnableChecksum:    true,
		LeavePartsOnError: false,
	}
}

// WithUploadConfig replaces the store's upload settings.
func WithUploadConfig(cfg UploadConfig) func(*UploadConfig) {
	return func(c *UploadConfig) {
		*c = cfg
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// computeCRC32C returns the checksum in S3 wire format, base64 over the
// big-endian bytes.
func computeCRC32C(data []byte) string {
	sum := hash.CRC32C(data)
	b := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
	return base64.StdEncoding.EncodeToString(b)
}

// putWithChecksum uploads a small blob with CRC32C integrity validation.
func putWithChecksum(ctx context.Context, client Client, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(bucket),
		Key:            aws.String(key),
		Body:           bytes.NewReader(data),
		ContentLength:  aws.Int64(int64(len(data))),
		ChecksumCRC32C: aws.String(computeCRC32C(data)),
	})
	return err
}

// streamingBlob pipes writes into an upload running in the background.
// Close finishes the stream and reports the upload's outcome.
type streamingBlob struct {
	pw *io.PipeWriter
	pr *io.PipeReader

	done     chan error
	closed   atomic.Bool
	closeMu  sync.Mutex
	closeErr error
}

func newStreamingBlob(ctx context.Context, client Client, uploader *manager.Uploader, bucket, key string, enableChecksum bool) *streamingBlob {
	pr, pw := io.Pipe()

	b := &streamingBlob{
		pw:   pw,
		pr:   pr,
		done: make(chan error, 1),
	}

	go func() {
		input := &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		}
		if enableChecksum {
			input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
		}

		_, err := uploader.Upload(ctx, input)

		// Unblock any in-flight Write before signalling.
		_ = pr.CloseWithError(err)
		b.done <- err
	}()

	return b
}

func (b *streamingBlob) Write(p []byte) (int, error) {
	if b.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return b.pw.Write(p)
}

// Close signals EOF to the uploader and waits for the upload to finish.
// Repeated calls return the first outcome.
func (b *streamingBlob) Close() error {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()

	if !b.closed.CompareAndSwap(false, true) {
		return b.closeErr
	}

	if err := b.pw.Close(); err != nil {
		b.closeErr = err
		return err
	}

	b.closeErr = <-b.done
	return b.closeErr
}

// Abort poisons the stream so the background upload fails. Unless
// LeavePartsOnError is set, the manager then aborts the multipart upload,
// leaving no partial object behind.
func (b *streamingBlob) Abort() {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()

	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	_ = b.pw.CloseWithError(context.Canceled)
	b.closeErr = <-b.done
}

// Sync is a no-op. S3 only commits the object on Close.
func (b *streamingBlob) Sync() error {
	return nil
}
