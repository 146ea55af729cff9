package sync

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectPutter is the part of *s3.Client that backups use.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads each backup as one object, overwriting the last.
// The export summary travels as object metadata so a listing shows how big
// each session was without downloading it.
type S3Destination struct {
	client objectPutter
	bucket string
	key    string
}

// NewS3Destination builds a destination from the default AWS credential
// chain. A non-empty endpoint switches to path-style addressing for MinIO
// and other S3-compatible stores.
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: bucket, key: key}, nil
}

func (d *S3Destination) Name() string { return fmt.Sprintf("s3://%s/%s", d.bucket, d.key) }

func (d *S3Destination) Write(ctx context.Context, b Backup) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(b.Data),
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			"question-count": strconv.Itoa(b.Questions),
			"answered-count": strconv.Itoa(b.Answered),
			"exported-at":    b.ExportedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", d.Name(), err)
	}
	return nil
}
