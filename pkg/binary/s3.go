package binary

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

// S3Uploader is the part of manager.Uploader the S3 sink uses
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config locates the bucket of an S3 sink
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
}

type s3Backend struct {
	bucket   string
	uploader S3Uploader
}

// NewS3Sink uploads attachments to an S3 bucket using the default AWS
// credential chain. Content is uploaded in parts as it is read.
func NewS3Sink(ctx context.Context, cfg S3Config, opts Options) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "s3 sink needs a bucket")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 8 * 1024 * 1024
		u.Concurrency = 2
	})

	return NewS3SinkWithUploader(cfg.Bucket, uploader, opts), nil
}

// NewS3SinkWithUploader builds an S3 sink on an existing uploader
func NewS3SinkWithUploader(bucket string, uploader S3Uploader, opts Options) *Store {
	return newStore(&s3Backend{bucket: bucket, uploader: uploader}, opts)
}

func (b *s3Backend) put(ctx context.Context, obj object, r io.Reader) (*workflow.BinaryData, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(obj.key),
		Body:   r,
		Metadata: map[string]string{
			"file-name": obj.fileName,
		},
	}
	if obj.contentType != "" {
		input.ContentType = aws.String(obj.contentType)
	}

	out, err := b.uploader.Upload(ctx, input)
	if err != nil {
		return nil, err
	}

	location := out.Location
	if location == "" {
		location = "s3://" + b.bucket + "/" + obj.key
	}
	return &workflow.BinaryData{Location: location}, nil
}

func (b *s3Backend) close() error { return nil }

func (b *s3Backend) name() string { return "s3" }
