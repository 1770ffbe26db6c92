package binary

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

// GCSObjects opens writers for objects of one bucket
type GCSObjects interface {
	NewWriter(ctx context.Context, name, contentType string) io.WriteCloser
}

// GCSConfig locates the bucket of a GCS sink
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

type bucketObjects struct {
	bucket *storage.BucketHandle
}

func (b bucketObjects) NewWriter(ctx context.Context, name, contentType string) io.WriteCloser {
	w := b.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

type gcsBackend struct {
	bucket  string
	objects GCSObjects
	client  *storage.Client
}

// NewGCSSink uploads attachments to a GCS bucket. Without a credentials
// file, application default credentials are used.
func NewGCSSink(ctx context.Context, cfg GCSConfig, opts Options) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "gcs sink needs a bucket")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}

	return newStore(&gcsBackend{
		bucket:  cfg.Bucket,
		objects: bucketObjects{bucket: client.Bucket(cfg.Bucket)},
		client:  client,
	}, opts), nil
}

// NewGCSSinkWithObjects builds a GCS sink on an existing object writer factory
func NewGCSSinkWithObjects(bucket string, objects GCSObjects, opts Options) *Store {
	return newStore(&gcsBackend{bucket: bucket, objects: objects}, opts)
}

func (b *gcsBackend) put(ctx context.Context, obj object, r io.Reader) (*workflow.BinaryData, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.objects.NewWriter(ctx, obj.key, obj.contentType)
	if _, err := io.Copy(w, r); err != nil {
		// cancelling the context before Close discards the partial object
		cancel()
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return &workflow.BinaryData{Location: "gs://" + b.bucket + "/" + obj.key}, nil
}

func (b *gcsBackend) close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

func (b *gcsBackend) name() string { return "gcs" }
