// Package storage archives uploaded statement PDFs in S3-compatible object
// storage. The local filesystem copy under the upload directory stays the
// working copy; the archive is the durable one.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/avelacruz/fintrack-api/internal/config"
)

type Archive interface {
	Store(ctx context.Context, key string, data []byte) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

type s3Archive struct {
	client *minio.Client
	bucket string
}

func NewS3Archive(cfg *config.Config) (Archive, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.S3BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &s3Archive{client: client, bucket: cfg.S3BucketName}, nil
}

func (s *s3Archive) Store(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/pdf"},
	)
	if err != nil {
		return fmt.Errorf("failed to archive statement: %w", err)
	}
	return nil
}

func (s *s3Archive) Retrieve(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get archived statement: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(object); err != nil {
		return nil, fmt.Errorf("failed to read archived statement: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *s3Archive) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove archived statement: %w", err)
	}
	return nil
}

// NopArchive satisfies Archive when S3 archiving is disabled.
type NopArchive struct{}

func (NopArchive) Store(context.Context, string, []byte) error { return nil }

func (NopArchive) Retrieve(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("statement archive is disabled")
}

func (NopArchive) Remove(context.Context, string) error { return nil }
