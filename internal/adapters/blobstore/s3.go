// Package blobstore moves index artifacts to and from S3-compatible object storage.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
)

// Scheme is the URI scheme handled by S3Store.
const Scheme = "s3"

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configure the S3 client. Endpoint is set for S3-compatible
// servers such as MinIO and switches to path-style addressing.
type S3Options struct {
	Region   string
	Endpoint string
}

// S3Store implements ports.BlobStore on Amazon S3.
type S3Store struct {
	client s3API
	logger *zap.Logger
}

// NewS3Store loads the default AWS credential chain and creates a store.
func NewS3Store(ctx context.Context, opts S3Options, logger *zap.Logger) (*S3Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, logger), nil
}

func newS3Store(client s3API, logger *zap.Logger) *S3Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Store{client: client, logger: logger}
}

// IsURI reports whether location names an object rather than a local file.
func IsURI(location string) bool {
	return strings.HasPrefix(location, Scheme+"://")
}

// ParseURI splits s3://bucket/key.
func ParseURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", uri, err)
	}
	if u.Scheme != Scheme || u.Host == "" {
		return "", "", fmt.Errorf("%q is not an s3://bucket/key URI", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("%q has no object key", uri)
	}
	return u.Host, key, nil
}

// Upload copies the local file to uri.
func (s *S3Store) Upload(ctx context.Context, localPath, uri string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return entities.NewError(entities.ErrInput, "upload artifact", err)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	s.logger.Info("Uploading artifact to S3", zap.String("bucket", bucket), zap.String("key", key))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/vnd.sqlite3"),
	})
	if err != nil {
		return entities.NewError(entities.ErrCapability, "upload artifact", fmt.Errorf("failed to upload to %s: %w", uri, err))
	}
	return nil
}

// Download copies uri to localPath. localPath is replaced only after the
// whole object has been received.
func (s *S3Store) Download(ctx context.Context, uri, localPath string) error {
	const op = "download artifact"

	bucket, key, err := ParseURI(uri)
	if err != nil {
		return entities.NewError(entities.ErrInput, op, err)
	}

	s.logger.Info("Downloading artifact from S3", zap.String("bucket", bucket), zap.String("key", key))
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return entities.NewError(entities.ErrNotFound, op, fmt.Errorf("%s: %w", uri, err))
		}
		return entities.NewError(entities.ErrCapability, op, err)
	}
	defer result.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, copyErr := io.Copy(tmp, result.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpName)
		return entities.NewError(entities.ErrCapability, op, errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", localPath, err)
	}
	return nil
}
