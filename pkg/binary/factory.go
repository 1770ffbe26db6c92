package binary

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-snowflake/pkg/compression"
	"github.com/ajitpratap0/nebula-snowflake/pkg/config"
	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
)

// NewSink builds the sink selected by the binary configuration
func NewSink(ctx context.Context, cfg config.BinaryConfig, logger *zap.Logger) (Sink, error) {
	alg, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid binary compression")
	}
	level := compression.Level(cfg.CompressionLevel)
	if level == 0 {
		level = compression.Default
	}

	opts := Options{
		Compression: alg,
		Level:       level,
		Prefix:      cfg.Prefix,
		Logger:      logger,
	}

	var store *Store
	switch cfg.Mode {
	case config.BinaryModeMemory, "":
		store = NewMemorySink(opts)
	case config.BinaryModeFilesystem:
		store, err = NewFilesystemSink(cfg.Path, opts)
	case config.BinaryModeS3:
		store, err = NewS3Sink(ctx, S3Config{Bucket: cfg.Bucket, Region: cfg.Region, Endpoint: cfg.Endpoint}, opts)
	case config.BinaryModeGCS:
		store, err = NewGCSSink(ctx, GCSConfig{Bucket: cfg.Bucket, CredentialsFile: cfg.CredentialsFile}, opts)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported binary mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
