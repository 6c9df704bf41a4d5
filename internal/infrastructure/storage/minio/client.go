// Package minio stores packaged NLU models in an S3-compatible bucket and
// downloads the newest artifact of a language on demand.
package minio

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/turtacn/MultiNLU/internal/config"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

// MinIOAPI is the part of *minio.Client used here.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var ErrBucketNotFound = errors.New(errors.ErrCodeStorageError, "bucket not found")

// MinIOClient binds a MinIOAPI to the configured model bucket.
type MinIOClient struct {
	client MinIOAPI
	config config.MinIOConfig
	logger logging.Logger
}

// NewMinIOClient connects to cfg.Endpoint and checks that the bucket exists.
// When createBucket is set a missing bucket is created instead.
func NewMinIOClient(ctx context.Context, cfg config.MinIOConfig, createBucket bool, log logging.Logger) (*MinIOClient, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	c := newMinIOClient(api, cfg, log)

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.EnsureBucket(checkCtx, createBucket); err != nil {
		return nil, err
	}

	log.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func newMinIOClient(api MinIOAPI, cfg config.MinIOConfig, log logging.Logger) *MinIOClient {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MinIOClient{client: api, config: cfg, logger: log}
}

func applyDefaults(cfg *config.MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = config.DefaultMinIOBucket
	}
}

// EnsureBucket verifies the model bucket, creating it when create is set.
func (c *MinIOClient) EnsureBucket(ctx context.Context, create bool) error {
	exists, err := c.client.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to reach minio").WithDetail(c.config.Endpoint)
	}
	if exists {
		return nil
	}
	if !create {
		return ErrBucketNotFound.WithDetail(c.config.Bucket)
	}
	if err := c.client.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").WithDetail(c.config.Bucket)
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

// HealthCheck reports whether the bucket is reachable.
func (c *MinIOClient) HealthCheck(ctx context.Context) error {
	return c.EnsureBucket(ctx, false)
}

// Bucket returns the model bucket name.
func (c *MinIOClient) Bucket() string { return c.config.Bucket }

//Personal.AI order the ending
