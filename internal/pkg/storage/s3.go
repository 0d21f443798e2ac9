package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

// S3Store writes report images to an S3 compatible bucket.
type S3Store struct {
	client *s3.Client
	cfg    config.S3Config
}

// NewS3Store creates the client and checks that the bucket is reachable.
// Outside prod a missing bucket is created.
func NewS3Store(ctx context.Context, cfg config.S3Config, appEnv string) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3 compatible services (MinIO, B2, R2) want path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	store := &S3Store{client: client, cfg: cfg}
	if err := store.ensureBucket(ctx, appEnv); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	log.Infof("[Storage] Initialized S3 store for bucket: %s", cfg.BucketName)
	return store, nil
}

func (s *S3Store) ensureBucket(ctx context.Context, appEnv string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.BucketName),
	})
	if err == nil {
		return nil
	}
	if appEnv == "prod" {
		return fmt.Errorf("bucket %s not accessible: %w", s.cfg.BucketName, err)
	}

	log.Warnf("[Storage] Bucket %s not found, attempting to create it", s.cfg.BucketName)
	input := &s3.CreateBucketInput{Bucket: aws.String(s.cfg.BucketName)}
	if s.cfg.EndpointURL == "" && s.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.cfg.Region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.cfg.BucketName, err)
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, in PutInput) (StoredObject, error) {
	if in.Key == "" {
		return StoredObject{}, errors.New("object key is empty")
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(in.Key),
		Body:        in.Body,
		ContentType: aws.String(in.ContentType),
		Metadata:    in.Metadata,
	}
	if in.Size >= 0 {
		input.ContentLength = aws.Int64(in.Size)
	}

	log.Infof("[Storage] Starting upload: s3://%s/%s (Size: %d bytes)", s.cfg.BucketName, in.Key, in.Size)

	// The body is streamed through a progress reader, which cannot be rewound
	// for payload hashing.
	_, err := s.client.PutObject(ctx, input, s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	if err != nil {
		return StoredObject{}, fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Infof("[Storage] Successfully uploaded: s3://%s/%s", s.cfg.BucketName, in.Key)
	return StoredObject{URL: s.PublicURL(in.Key), Key: in.Key, Size: in.Size}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	log.Infof("[Storage] Successfully deleted: s3://%s/%s", s.cfg.BucketName, key)
	return nil
}

// PublicURL is the durable reference handed to clients for key.
func (s *S3Store) PublicURL(key string) string {
	return S3PublicURL(s.cfg, key)
}

// S3PublicURL prefers the configured public base URL, then the path-style
// custom endpoint, then the virtual-hosted AWS URL.
func S3PublicURL(cfg config.S3Config, key string) string {
	switch {
	case cfg.PublicBaseURL != "":
		return joinURL(cfg.PublicBaseURL, key)
	case cfg.EndpointURL != "":
		return joinURL(strings.TrimRight(cfg.EndpointURL, "/")+"/"+cfg.BucketName, key)
	default:
		return joinURL(fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region), key)
	}
}
