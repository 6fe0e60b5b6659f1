// Package s3 implements the agent's object store client: downloading
// staged test data and uploading finished job artifacts to S3-compatible
// storage.
package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	ultaerrors "github.com/ulta-agent/ulta/errors"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// api is the subset of *s3.Client this package drives, narrowed so
// tests can substitute a fake without standing up a real bucket.
type api interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store uploads and downloads objects against an S3-compatible bucket.
// It satisfies artifact.ObjectStore (Upload) and ulta.ObjectStore
// (Download) structurally.
type Store struct {
	client api
	logger *zap.SugaredLogger
}

// Config selects the endpoint and credentials for the object store.
// Endpoint is optional; when empty the SDK resolves the default AWS
// endpoint for Region.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// New builds a Store from cfg. It loads SDK defaults (shared config,
// environment credentials) and layers cfg's explicit values on top when
// set, so the agent can point at a non-AWS S3-compatible endpoint
// without needing a full AWS profile.
func New(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*Store, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, ultaerrors.Wrap(err, "load object store configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Store{client: client, logger: logger}, nil
}

// Download fetches bucket/key and writes it to localPath.
func (s *Store) Download(bucket, key, localPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return wrapObjectStoreError("download", bucket, key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return ultaerrors.Wrapf(err, "create local file for %s/%s", bucket, key)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return ultaerrors.Wrapf(err, "write downloaded object %s/%s to %s", bucket, key, localPath)
	}
	return nil
}

// Upload publishes sourceFile to s3Bucket under s3Filename.
func (s *Store) Upload(sourceFile, s3Filename, s3Bucket string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	f, err := os.Open(sourceFile)
	if err != nil {
		return ultaerrors.Wrapf(err, "open artifact %s for upload", sourceFile)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s3Bucket,
		Key:    &s3Filename,
		Body:   f,
	})
	if err != nil {
		return wrapObjectStoreError("upload", s3Bucket, s3Filename, err)
	}
	if s.logger != nil {
		s.logger.Infow("uploaded artifact", "bucket", s3Bucket, "key", s3Filename)
	}
	return nil
}

// objectStoreError marks every failure from this package as
// ulta.ObjectStorage()==true, and NotFound()==true when the bucket
// reports the key doesn't exist, so callers such as ulta's ammo
// extraction can decide whether a missing object is recoverable.
type objectStoreError struct {
	op       string
	bucket   string
	key      string
	notFound bool
	err      error
}

func wrapObjectStoreError(op, bucket, key string, err error) error {
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	notFound := errors.As(err, &nsk) || errors.As(err, &nsb)
	return &objectStoreError{op: op, bucket: bucket, key: key, notFound: notFound, err: err}
}

func (e *objectStoreError) Error() string {
	return e.op + " " + e.bucket + "/" + e.key + ": " + e.err.Error()
}

func (e *objectStoreError) Unwrap() error { return e.err }

func (e *objectStoreError) ObjectStorage() bool { return true }

func (e *objectStoreError) NotFound() bool { return e.notFound }
