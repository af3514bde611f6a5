package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archive stores report artifacts in an S3 bucket so scheduled runs leave
// a durable audit trail without a local filesystem.
type S3Archive struct {
	Client *s3.Client
	Bucket string
}

func NewS3Archive(cfg aws.Config, bucket string) *S3Archive {
	return &S3Archive{Client: s3.NewFromConfig(cfg), Bucket: bucket}
}

func (a *S3Archive) Store(ctx context.Context, name string, data []byte) error {
	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading report to s3://%s/%s: %w", a.Bucket, name, err)
	}
	return nil
}
