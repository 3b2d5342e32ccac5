package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink stores converted documents by name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

// DirSink writes documents as files under a local directory.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (s *DirSink) Put(ctx context.Context, name string, data []byte) error {
	return os.WriteFile(filepath.Join(s.dir, filepath.Base(name)), data, 0o644)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads documents to a bucket under a key prefix, where the
// knowledge base data source picks them up.
type S3Sink struct {
	client putObjectAPI
	bucket string
	prefix string
}

func NewS3Sink(cfg aws.Config, bucket, prefix string) *S3Sink {
	return &S3Sink{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	key := path.Join(s.prefix, name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("error uploading s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
