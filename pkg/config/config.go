// Package config defines the configuration of one Snowflake node invocation.
//
// The configuration is organized into three sections:
//   - Credentials: stored Snowflake credentials (password or key pair) and
//     OAuth2 credentials
//   - Node: the node parameters chosen in the workflow editor
//   - Runtime: batching, streaming, binary storage, logging, metrics and tracing
//
// Example usage:
//
//	cfg, err := config.LoadConfig("node.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Runtime.BatchSize = 500
package config

import (
	"time"

	"github.com/ajitpratap0/nebula-snowflake/pkg/auth"
	"github.com/ajitpratap0/nebula-snowflake/pkg/compression"
	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
)

// Authentication types selectable on the node
const (
	AuthTypePassword = "password"
	AuthTypeOAuth2   = "oauth2"
)

// Binary storage modes
const (
	BinaryModeMemory     = "memory"
	BinaryModeFilesystem = "filesystem"
	BinaryModeS3         = "s3"
	BinaryModeGCS        = "gcs"
)

// DefaultFileName is the attachment name of CSV exports
const DefaultFileName = "query_results.csv"

// Config is the complete configuration of a node invocation
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
	Node        NodeConfig        `yaml:"node" json:"node"`
	Runtime     RuntimeConfig     `yaml:"runtime" json:"runtime"`
}

// CredentialsConfig holds the stored credentials available to the node
type CredentialsConfig struct {
	Snowflake       *auth.SnowflakeCredentials `yaml:"snowflake,omitempty" json:"snowflake,omitempty"`
	SnowflakeOAuth2 *auth.OAuth2Credentials    `yaml:"snowflake_oauth2,omitempty" json:"snowflake_oauth2,omitempty"`
}

// NodeConfig holds the node parameters. Keys follow the workflow editor's
// parameter names.
type NodeConfig struct {
	// Name identifies the node in logs
	Name         string `yaml:"name" json:"name"`
	AuthType     string `yaml:"authType" json:"authType"`
	Operation    string `yaml:"operation" json:"operation"`
	Query        string `yaml:"query" json:"query"`
	OutputFormat string `yaml:"outputFormat" json:"outputFormat"`
	Table        string `yaml:"table" json:"table"`
	// Columns is a comma-separated column list
	Columns   string `yaml:"columns" json:"columns"`
	UpdateKey string `yaml:"updateKey" json:"updateKey"`
	FileName  string `yaml:"fileName" json:"fileName"`
}

// RuntimeConfig contains settings of the process running the node
type RuntimeConfig struct {
	// BatchSize caps the number of items sent in one INSERT statement
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// StreamBuffer is the number of CSV lines queued ahead of the binary sink
	StreamBuffer int `yaml:"stream_buffer" json:"stream_buffer"`
	// MaxChunkDownloadWorkers tunes the driver's parallel result downloads (0 = driver default)
	MaxChunkDownloadWorkers int `yaml:"max_chunk_download_workers" json:"max_chunk_download_workers"`
	// Timeout bounds the whole invocation (0 = no limit)
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	Binary  BinaryConfig  `yaml:"binary" json:"binary"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// BinaryConfig selects where binary attachments are materialized
type BinaryConfig struct {
	Mode string `yaml:"mode" json:"mode"`
	// Path is the target directory for filesystem mode
	Path   string `yaml:"path" json:"path"`
	Bucket string `yaml:"bucket" json:"bucket"`
	Prefix string `yaml:"prefix" json:"prefix"`
	Region string `yaml:"region" json:"region"`
	// Endpoint overrides the S3 endpoint (S3-compatible stores)
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// CredentialsFile is a GCS service account file
	CredentialsFile  string `yaml:"credentials_file" json:"credentials_file"`
	Compression      string `yaml:"compression" json:"compression"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
	// DriverLogs keeps the Snowflake driver's own log output
	DriverLogs bool `yaml:"driver_logs" json:"driver_logs"`
}

// MetricsConfig configures metric export
type MetricsConfig struct {
	// Textfile receives the metrics in node-exporter textfile format after the run
	Textfile string `yaml:"textfile" json:"textfile"`
}

// TracingConfig configures span export
type TracingConfig struct {
	// Output is a file path or "stdout"; empty disables tracing
	Output     string  `yaml:"output" json:"output"`
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewConfig creates a configuration with defaults filled in
func NewConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Name:         "Snowflake",
			AuthType:     AuthTypePassword,
			Operation:    "executeQuery",
			OutputFormat: "json",
			FileName:     DefaultFileName,
		},
		Runtime: RuntimeConfig{
			BatchSize:    1000,
			StreamBuffer: 256,
			Binary: BinaryConfig{
				Mode:             BinaryModeMemory,
				Compression:      string(compression.None),
				CompressionLevel: int(compression.Default),
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stderr",
			},
			Tracing: TracingConfig{
				SampleRate: 1.0,
			},
		},
	}
}

// Validate checks that the configuration can drive an invocation.
// Node parameters specific to an operation are checked by the node itself.
func (c *Config) Validate() error {
	switch c.Node.AuthType {
	case AuthTypePassword, "":
		if c.Credentials.Snowflake == nil {
			return errors.New(errors.ErrorTypeConfig, "credentials.snowflake is required for password authentication")
		}
		if err := c.Credentials.Snowflake.Validate(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid snowflake credentials")
		}
	case AuthTypeOAuth2:
		if c.Credentials.SnowflakeOAuth2 == nil {
			return errors.New(errors.ErrorTypeConfig, "credentials.snowflake_oauth2 is required for oauth2 authentication")
		}
		if err := c.Credentials.SnowflakeOAuth2.Validate(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid snowflake oauth2 credentials")
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported authType %q", c.Node.AuthType)
	}

	return c.Runtime.Validate()
}

// Validate checks the runtime section
func (r *RuntimeConfig) Validate() error {
	if r.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "batch_size must be positive")
	}
	if r.StreamBuffer <= 0 {
		return errors.New(errors.ErrorTypeConfig, "stream_buffer must be positive")
	}
	if r.MaxChunkDownloadWorkers < 0 {
		return errors.New(errors.ErrorTypeConfig, "max_chunk_download_workers cannot be negative")
	}
	if r.Tracing.SampleRate < 0 || r.Tracing.SampleRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing sample_rate must be between 0 and 1")
	}
	return r.Binary.Validate()
}

// Validate checks the binary storage section
func (b *BinaryConfig) Validate() error {
	switch b.Mode {
	case BinaryModeMemory, "":
	case BinaryModeFilesystem:
		if b.Path == "" {
			return errors.New(errors.ErrorTypeConfig, "binary path is required for filesystem mode")
		}
	case BinaryModeS3, BinaryModeGCS:
		if b.Bucket == "" {
			return errors.Newf(errors.ErrorTypeConfig, "binary bucket is required for %s mode", b.Mode)
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported binary mode %q", b.Mode)
	}

	if _, err := compression.ParseAlgorithm(b.Compression); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid binary compression")
	}
	return nil
}

// IsCompressionEnabled returns true if attachments should be compressed
func (b *BinaryConfig) IsCompressionEnabled() bool {
	return b.Compression != "" && b.Compression != string(compression.None)
}
