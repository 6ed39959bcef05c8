package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrImageTooLarge is returned when a stored object exceeds the size limit.
var ErrImageTooLarge = errors.New("ocr: image exceeds size limit")

// S3API is the subset of the S3 client used by S3ImageSource.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ImageSource fetches previously uploaded images from a bucket.
type S3ImageSource struct {
	client   S3API
	bucket   string
	maxBytes int64
}

// NewS3ImageSource returns nil when bucket is empty so callers can treat the
// source as optional.
func NewS3ImageSource(client S3API, bucket string, maxBytes int64) *S3ImageSource {
	if client == nil || strings.TrimSpace(bucket) == "" {
		return nil
	}
	return &S3ImageSource{client: client, bucket: bucket, maxBytes: maxBytes}
}

// Fetch downloads key and returns it as an Image.
func (s *S3ImageSource) Fetch(ctx context.Context, key string) (Image, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return Image{}, errors.New("ocr: s3 key is required")
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Image{}, fmt.Errorf("ocr: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	reader := io.Reader(out.Body)
	if s.maxBytes > 0 {
		reader = io.LimitReader(out.Body, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return Image{}, fmt.Errorf("ocr: s3 read %s: %w", key, err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return Image{}, ErrImageTooLarge
	}
	return Image{
		Data:        data,
		ContentType: aws.ToString(out.ContentType),
		Name:        key,
	}, nil
}
