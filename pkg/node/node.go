// Package node implements the Snowflake workflow node: it opens one
// warehouse session per invocation, dispatches the configured operation
// over the input items and releases the session on every exit path.
//
// Operations:
//   - executeQuery with json output runs the query once per item and emits
//     one item per result row
//   - executeQuery with csv output streams the result of a single query into
//     a CSV attachment
//   - insert writes the items' column values in batched multi-row statements
//   - update runs one keyed UPDATE per item
package node

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-snowflake/pkg/binary"
	"github.com/ajitpratap0/nebula-snowflake/pkg/config"
	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/logger"
	"github.com/ajitpratap0/nebula-snowflake/pkg/metrics"
	"github.com/ajitpratap0/nebula-snowflake/pkg/observability"
	stringpool "github.com/ajitpratap0/nebula-snowflake/pkg/strings"
	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

// Operations
const (
	OperationExecuteQuery = "executeQuery"
	OperationInsert       = "insert"
	OperationUpdate       = "update"
)

// Output formats of executeQuery
const (
	OutputFormatJSON = "json"
	OutputFormatCSV  = "csv"
)

// BinaryPropertyName is the binary property holding CSV exports
const BinaryPropertyName = "data"

// Node runs one configured operation per Execute call
type Node struct {
	params  config.NodeConfig
	runtime config.RuntimeConfig
	columns []string

	connect ConnectFunc
	sink    binary.Sink
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a Node
type Option func(*Node)

// WithConnector replaces the credential-based connector
func WithConnector(connect ConnectFunc) Option {
	return func(n *Node) {
		n.connect = connect
	}
}

// WithSink sets the sink that materializes CSV exports
func WithSink(sink binary.Sink) Option {
	return func(n *Node) {
		n.sink = sink
	}
}

// WithLogger sets the node logger
func WithLogger(logger *zap.Logger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(n *Node) {
		n.metrics = collector
	}
}

// New creates a node from its configuration. Node parameters are validated
// against the selected operation; credentials are only resolved on connect.
func New(cfg *config.Config, opts ...Option) (*Node, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "node config is nil")
	}

	n := &Node{
		params:  cfg.Node,
		runtime: cfg.Runtime,
		columns: stringpool.SplitTrimmed(cfg.Node.Columns, ","),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.params.FileName == "" {
		n.params.FileName = config.DefaultFileName
	}
	if n.params.OutputFormat == "" {
		n.params.OutputFormat = OutputFormatJSON
	}
	if err := n.validate(); err != nil {
		return nil, err
	}

	n.logger = n.logger.With(zap.String("component", "snowflake-node"))
	if n.connect == nil {
		n.connect = CredentialConnector(cfg.Credentials, n.params.AuthType, n.logger, n.metrics)
	}
	if n.sink == nil {
		n.sink = binary.NewMemorySink(binary.Options{Logger: n.logger})
	}
	return n, nil
}

func (n *Node) validate() error {
	switch n.params.Operation {
	case OperationExecuteQuery:
		if n.params.Query == "" {
			return errors.New(errors.ErrorTypeValidation, "query is required for executeQuery")
		}
		if n.params.OutputFormat != OutputFormatJSON && n.params.OutputFormat != OutputFormatCSV {
			return errors.Newf(errors.ErrorTypeValidation, "unsupported outputFormat %q", n.params.OutputFormat)
		}
	case OperationInsert:
		if n.params.Table == "" {
			return errors.New(errors.ErrorTypeValidation, "table is required for insert")
		}
		if len(n.columns) == 0 {
			return errors.New(errors.ErrorTypeValidation, "columns are required for insert")
		}
	case OperationUpdate:
		if n.params.Table == "" {
			return errors.New(errors.ErrorTypeValidation, "table is required for update")
		}
		if n.params.UpdateKey == "" {
			return errors.New(errors.ErrorTypeValidation, "updateKey is required for update")
		}
	default:
		return errors.Newf(errors.ErrorTypeValidation, "unsupported operation %q", n.params.Operation)
	}
	return nil
}

// Execute runs the configured operation over items. The session opened for
// the call is destroyed before Execute returns; a destroy failure is
// returned when the operation itself succeeded and logged otherwise.
func (n *Node) Execute(ctx context.Context, items []workflow.Item) (out []workflow.Item, err error) {
	if n.runtime.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.runtime.Timeout)
		defer cancel()
	}

	ctx = logger.WithOperation(ctx, n.params.Operation)
	ctx, span := observability.StartSpan(ctx, "node.execute",
		attribute.String("node.operation", n.params.Operation),
		attribute.Int("node.items", len(items)))
	defer func() { observability.EndSpan(span, err) }()

	log := logger.FromContext(ctx, n.logger)
	start := time.Now()

	sess, err := n.connect(ctx)
	if err != nil {
		log.Error("connect failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		// release even when ctx was cancelled or timed out
		derr := sess.Destroy(context.WithoutCancel(ctx))
		if derr == nil {
			return
		}
		if err == nil {
			out, err = nil, derr
			return
		}
		log.Warn("session release failed after operation error", zap.Error(derr))
	}()

	switch n.params.Operation {
	case OperationExecuteQuery:
		if n.params.OutputFormat == OutputFormatCSV {
			out, err = n.exportCSV(ctx, sess, items)
		} else {
			out, err = n.executeQuery(ctx, sess, items)
		}
	case OperationInsert:
		out, err = n.insert(ctx, sess, items)
	case OperationUpdate:
		out, err = n.update(ctx, sess, items)
	}
	if err != nil {
		log.Error("operation failed", zap.Error(err))
		return nil, err
	}

	log.Info("operation completed",
		zap.Int("input_items", len(items)),
		zap.Int("output_items", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// TestConnection opens a session with the node's credentials and releases it
func (n *Node) TestConnection(ctx context.Context) error {
	sess, err := n.connect(ctx)
	if err != nil {
		return err
	}
	return sess.Destroy(ctx)
}

// Close releases the binary sink
func (n *Node) Close() error {
	return n.sink.Close()
}
