package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object metadata keys written with every export.
const (
	metaExportVersion = "export-version"
	metaContentSHA256 = "content-sha256"
)

// objectStore is the part of the S3 API an export uses.
type objectStore interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options locates the export object.
type S3Options struct {
	Bucket string
	Key    string
	Region string
	// Endpoint overrides the AWS endpoint and switches to path-style
	// addressing, for MinIO and similar.
	Endpoint string
}

// S3Destination uploads the session export to one object in an
// S3-compatible bucket.
type S3Destination struct {
	client objectStore
	bucket string
	key    string
}

// NewS3Destination loads the default AWS credential chain and returns a
// destination for opts.
func NewS3Destination(ctx context.Context, opts S3Options) (*S3Destination, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 export: bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Destination(client, opts.Bucket, opts.Key), nil
}

func newS3Destination(client objectStore, bucket, key string) *S3Destination {
	if key == "" {
		key = DefaultExportFile
	}
	return &S3Destination{client: client, bucket: bucket, key: key}
}

// Name returns the s3:// URL of the target object.
func (d *S3Destination) Name() string {
	return "s3://" + d.bucket + "/" + d.key
}

// Write uploads data unless the object already holds the same bytes.
// A failed HEAD (missing object, no permission) just means upload.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	head, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
	})
	if err == nil && head.Metadata[metaContentSHA256] == digest {
		return nil
	}

	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(d.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			metaExportVersion: ExportVersion,
			metaContentSHA256: digest,
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", d.Name(), err)
	}
	return nil
}
