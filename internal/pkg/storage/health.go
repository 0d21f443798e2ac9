package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Pinger is implemented by backends that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a probe for store, or nil when the backend cannot
// report its health.
func HealthCheck(store ObjectStore) func(ctx context.Context) error {
	p, ok := store.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping
}

// Ping checks that the bucket is still reachable with our credentials.
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.BucketName),
	}); err != nil {
		return fmt.Errorf("bucket %s: %w", s.cfg.BucketName, err)
	}
	return nil
}

// Ping checks that the root directory exists and is writable.
func (l *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(l.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.root)
	}

	probe, err := os.CreateTemp(l.root, ".healthz-*")
	if err != nil {
		return fmt.Errorf("storage dir not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(filepath.Clean(name))
}
