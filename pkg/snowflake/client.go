// Package snowflake manages warehouse sessions and runs statements on them.
//
// A Client owns the database handle built from driver configuration. Connect
// reserves one dedicated connection as a Session; every statement of an
// invocation runs on that Session, which is released with Destroy.
package snowflake

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/metrics"
	"github.com/ajitpratap0/nebula-snowflake/pkg/observability"
)

// Client opens sessions against one Snowflake account
type Client struct {
	db      *sql.DB
	account string
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a Client
type Option func(*Client)

// WithMetrics records session and statement metrics on the collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client from driver configuration. No network traffic
// happens until Connect.
func NewClient(cfg *gosnowflake.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "snowflake config is required")
	}
	if cfg.Account == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "snowflake account is required")
	}

	db := sql.OpenDB(gosnowflake.NewConnector(gosnowflake.SnowflakeDriver{}, *cfg))
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	c := newClient(db, cfg.Account, opts)
	return c, nil
}

// NewClientFromDB wraps an existing database handle. The client takes
// ownership of db and closes it when the session is destroyed.
func NewClientFromDB(db *sql.DB, opts ...Option) *Client {
	return newClient(db, "", opts)
}

func newClient(db *sql.DB, account string, opts []Option) *Client {
	c := &Client{
		db:      db,
		account: account,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "snowflake"))
	return c
}

// Connect reserves a dedicated connection and verifies it with a ping.
// On failure the client's handle is closed and no session exists.
func (c *Client) Connect(ctx context.Context) (sess *Session, err error) {
	ctx, span := observability.StartSpan(ctx, "snowflake.connect",
		attribute.String("snowflake.account", c.account))
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	conn, err := c.db.Conn(ctx)
	if err == nil {
		if perr := conn.PingContext(ctx); perr != nil {
			_ = conn.Close()
			err = perr
		}
	}
	if err != nil {
		c.metrics.ConnectFailed()
		if cerr := c.db.Close(); cerr != nil {
			c.logger.Debug("failed to close handle after connect failure", zap.Error(cerr))
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to snowflake").
			WithDetail("account", c.account)
	}

	c.metrics.SessionOpened()
	c.logger.Debug("session opened",
		zap.String("account", c.account),
		zap.Duration("elapsed", time.Since(start)))

	return &Session{
		client: c,
		conn:   conn,
		logger: c.logger,
	}, nil
}

// SetDriverLogging routes the driver's internal logger to w, or discards it
// when w is nil.
func SetDriverLogging(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	gosnowflake.GetLogger().SetOutput(w)
}

// SetMaxChunkDownloadWorkers sets the number of result chunks the driver
// downloads in parallel. Values below one keep the driver default.
func SetMaxChunkDownloadWorkers(n int) {
	if n > 0 {
		gosnowflake.MaxChunkDownloadWorkers = n
	}
}
