package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/redmonkez12/task-api/internal/config"
)

// ObjectAPI is the part of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store keeps images in an S3 compatible bucket. Objects live under
// <folder>/<publicID>, so a caller that knows the public id can always
// destroy what it uploaded.
type Store struct {
	client        ObjectAPI
	bucket        string
	folder        string
	publicBaseURL string
	now           func() time.Time
}

// seams for tests
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Store builds a Store from configuration. A custom endpoint switches
// to path-style addressing for MinIO and similar services.
func NewS3Store(ctx context.Context, cfg config.MediaConfig) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewStore(client, cfg.Bucket, cfg.Folder, publicBaseURL(cfg)), nil
}

func NewStore(client ObjectAPI, bucket, folder, publicBaseURL string) *Store {
	return &Store{
		client:        client,
		bucket:        bucket,
		folder:        strings.Trim(folder, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

// Key returns the object key for publicID.
func (s *Store) Key(publicID string) string {
	publicID = strings.Trim(publicID, "/")
	if s.folder == "" {
		return publicID
	}
	return s.folder + "/" + publicID
}

// Upload stores body under publicID, replacing any previous object, and
// returns its public URL. The URL carries a version so clients refetch
// after a replacement.
func (s *Store) Upload(ctx context.Context, publicID string, body io.Reader, size int64, contentType string) (string, error) {
	key := s.Key(publicID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return fmt.Sprintf("%s/%s?v=%d", s.publicBaseURL, key, s.now().Unix()), nil
}

// Destroy deletes the object for publicID. Deleting a missing object succeeds.
func (s *Store) Destroy(ctx context.Context, publicID string) error {
	key := s.Key(publicID)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

func publicBaseURL(cfg config.MediaConfig) string {
	switch {
	case cfg.PublicBaseURL != "":
		return cfg.PublicBaseURL
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}
