package objectfs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectInfo is one entry returned by objectStore.List: either a leaf
// object (IsDir false) or a common prefix standing in for a sub-directory
// the store has no direct metadata for (IsDir true, Size/ModTime zero until
// the caller resolves its placeholder separately).
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// objectStore is the C9a seam: the handful of S3-shaped operations
// FileSystem needs, kept as an interface so tests can swap in a fake
// in-memory implementation instead of talking to a real bucket.
type objectStore interface {
	// List lists entries directly under prefix (one level, "/"-delimited),
	// starting after marker, up to limit entries.
	List(ctx context.Context, prefix, marker string, limit int) ([]ObjectInfo, error)
	// Move copies from to to and removes from; used by rename.
	Move(ctx context.Context, from, to string) error
	// Remove deletes every key given, in one batch call where possible.
	Remove(ctx context.Context, keys []string) error
	// PresignGet returns a time-limited signed URL to GET key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// PutEmpty uploads a zero-byte object at key.
	PutEmpty(ctx context.Context, key string, upsert bool) error
}

// s3Store is the production objectStore, backed by aws-sdk-go-v2's S3
// client and its presigning client.
type s3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
}

func newS3Store(client *s3.Client, bucket string) *s3Store {
	return &s3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}
}

func (s *s3Store) List(ctx context.Context, prefix, marker string, limit int) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(int32(limit)),
	}

	if marker != "" {
		input.StartAfter = aws.String(marker)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	entries := make([]ObjectInfo, 0, len(out.Contents)+len(out.CommonPrefixes))

	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if key == prefix {
			continue
		}

		entries = append(entries, ObjectInfo{
			Key:     key,
			Size:    aws.ToInt64(obj.Size),
			ModTime: aws.ToTime(obj.LastModified),
		})
	}

	for _, cp := range out.CommonPrefixes {
		entries = append(entries, ObjectInfo{
			Key:   aws.ToString(cp.Prefix),
			IsDir: true,
		})
	}

	return entries, nil
}

func (s *s3Store) Move(ctx context.Context, from, to string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + from),
		Key:        aws.String(to),
	})
	if err != nil {
		return fmt.Errorf("copy %q to %q: %w", from, to, err)
	}

	return s.Remove(ctx, []string{from})
}

func (s *s3Store) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make([]types.ObjectIdentifier, len(keys))
	for i, k := range keys {
		objects[i] = types.ObjectIdentifier{Key: aws.String(k)}
	}

	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("remove %d key(s): %w", len(keys), err)
	}

	return nil
}

func (s *s3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %q: %w", key, err)
	}

	return req.URL, nil
}

func (s *s3Store) PutEmpty(ctx context.Context, key string, upsert bool) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentLength: aws.Int64(0),
	}

	if !upsert {
		input.IfNoneMatch = aws.String("*")
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		var apiErr interface{ ErrorCode() string }
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return nil
		}

		return fmt.Errorf("put empty %q: %w", key, err)
	}

	return nil
}
