package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/marmos91/davtree/pkg/content"
)

// S3ContentStore implements content.ContentStore on Amazon S3 or
// S3-compatible storage.
//
// Key Design:
//   - ContentID is a random UUID assigned at write time
//   - Object key is keyPrefix + ContentID
//   - Duplicate is a server-side CopyObject, so no bytes travel through
//     the engine when a file is copied
//
// S3 Characteristics:
//   - Delete of a missing object succeeds, matching the idempotent Delete
//     contract for free
//   - UsedBytes is a full ListObjectsV2 scan over the key prefix; callers
//     that poll it frequently should cache the result
//
// Thread Safety:
// Safe for concurrent use. Concurrent writes to the same ContentID are
// last-write-wins under S3's consistency model.
type S3ContentStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// Config contains configuration for the S3 content store.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, e.g.
	// "davtree/content/".
	KeyPrefix string
}

// NewS3ContentStore creates an S3-backed content store and verifies bucket
// access. The bucket must already exist; this function does not create it.
func NewS3ContentStore(ctx context.Context, cfg Config) (*S3ContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ContentStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *S3ContentStore) key(contentID string) string {
	return s.keyPrefix + contentID
}

// Write stores data under contentID, replacing any previous bytes.
func (s *S3ContentStore) Write(ctx context.Context, contentID string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(contentID)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("writing content %s: %w", contentID, err)
	}
	return nil
}

// ReadAll returns the complete bytes for contentID.
func (s *S3ContentStore) ReadAll(ctx context.Context, contentID string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(contentID)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("content %s: %w", contentID, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("reading content %s: %w", contentID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading content %s body: %w", contentID, err)
	}
	return data, nil
}

// Duplicate creates an independent copy via server-side CopyObject and
// returns the new content ID.
func (s *S3ContentStore) Duplicate(ctx context.Context, contentID string) (string, error) {
	newID := uuid.NewString()
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + s.key(contentID)),
		Key:        aws.String(s.key(newID)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("content %s: %w", contentID, content.ErrContentNotFound)
		}
		return "", fmt.Errorf("duplicating content %s: %w", contentID, err)
	}
	return newID, nil
}

// Delete removes the content. S3 deletes of missing objects succeed, which
// matches the idempotent Delete contract.
func (s *S3ContentStore) Delete(ctx context.Context, contentID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(contentID)),
	})
	if err != nil {
		return fmt.Errorf("deleting content %s: %w", contentID, err)
	}
	return nil
}

// Exists reports whether content with this ID is stored.
func (s *S3ContentStore) Exists(ctx context.Context, contentID string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(contentID)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("checking content %s: %w", contentID, err)
	}
	return true, nil
}

// ListAll returns the content IDs of every object under the key prefix
// using a paginated list scan.
func (s *S3ContentStore) ListAll(ctx context.Context) ([]string, error) {
	var ids []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing content objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			ids = append(ids, strings.TrimPrefix(*obj.Key, s.keyPrefix))
		}
	}
	return ids, nil
}

// UsedBytes sums object sizes under the key prefix with a paginated list
// scan.
func (s *S3ContentStore) UsedBytes(ctx context.Context) (uint64, error) {
	var total uint64
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("listing content objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Size != nil && *obj.Size > 0 {
				total += uint64(*obj.Size)
			}
		}
	}
	return total, nil
}
