package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-snowflake/pkg/auth"
	"github.com/ajitpratap0/nebula-snowflake/pkg/binary"
	"github.com/ajitpratap0/nebula-snowflake/pkg/config"
	"github.com/ajitpratap0/nebula-snowflake/pkg/logger"
	"github.com/ajitpratap0/nebula-snowflake/pkg/metrics"
	"github.com/ajitpratap0/nebula-snowflake/pkg/node"
	"github.com/ajitpratap0/nebula-snowflake/pkg/observability"
	"github.com/ajitpratap0/nebula-snowflake/pkg/snowflake"
	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

// app holds everything one CLI invocation sets up around the node
type app struct {
	cfg      *config.Config
	node     *node.Node
	log      *zap.Logger
	metrics  *metrics.Collector
	shutdown observability.ShutdownFunc
}

func setup(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Runtime.Logging.Level,
		Encoding:    cfg.Runtime.Logging.Format,
		OutputPaths: []string{cfg.Runtime.Logging.Output},
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get().With(zap.String("component", "snowflake-node-cli"))

	if cfg.Runtime.Logging.DriverLogs {
		snowflake.SetDriverLogging(os.Stderr)
	} else {
		snowflake.SetDriverLogging(nil)
	}
	snowflake.SetMaxChunkDownloadWorkers(cfg.Runtime.MaxChunkDownloadWorkers)

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "snowflake-node",
		ServiceVersion: version,
		Output:         cfg.Runtime.Tracing.Output,
		SamplingRate:   cfg.Runtime.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	collector := metrics.NewCollector("snowflake")

	sink, err := binary.NewSink(ctx, cfg.Runtime.Binary, log)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to create binary sink: %w", err)
	}

	n, err := node.New(cfg,
		node.WithSink(sink),
		node.WithLogger(log),
		node.WithMetrics(collector))
	if err != nil {
		_ = sink.Close()
		_ = shutdown(ctx)
		return nil, fmt.Errorf("invalid node parameters: %w", err)
	}

	return &app{cfg: cfg, node: n, log: log, metrics: collector, shutdown: shutdown}, nil
}

// close flushes spans and metrics and releases the sink
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("failed to flush traces", zap.Error(err))
	}
	if path := a.cfg.Runtime.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			a.log.Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}
	if err := a.node.Close(); err != nil {
		a.log.Warn("failed to close binary sink", zap.Error(err))
	}
	_ = logger.Sync()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runNode(parent context.Context, configFile, inputFile, outputFile string) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	a, err := setup(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.close()

	items, err := readInput(inputFile)
	if err != nil {
		return err
	}

	ctx = logger.WithExecution(ctx, uuid.NewString(), a.cfg.Node.Name)
	a.log.Info("executing node",
		zap.String("operation", a.cfg.Node.Operation),
		zap.Int("items", len(items)))

	out, err := a.node.Execute(ctx, items)
	if err != nil {
		return fmt.Errorf("node execution failed: %w", err)
	}

	return writeOutput(outputFile, out)
}

func testCredentials(parent context.Context, configFile string) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	a, err := setup(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.node.TestConnection(ctx); err != nil {
		return fmt.Errorf("credential test failed: %w", err)
	}
	fmt.Println("Connection successful")
	return nil
}

func initConfig(configFile string, force bool) error {
	if !force {
		if _, err := os.Stat(configFile); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", configFile)
		}
	}

	cfg := config.NewConfig()
	cfg.Credentials.Snowflake = &auth.SnowflakeCredentials{
		Connection: auth.Connection{
			Account:   "${SNOWFLAKE_ACCOUNT}",
			Database:  "${SNOWFLAKE_DATABASE}",
			Schema:    "${SNOWFLAKE_SCHEMA:-PUBLIC}",
			Warehouse: "${SNOWFLAKE_WAREHOUSE}",
		},
		Authentication: auth.AuthenticationPassword,
		Username:       "${SNOWFLAKE_USER}",
		Password:       "${SNOWFLAKE_PASSWORD}",
	}
	cfg.Node.Query = "SELECT CURRENT_TIMESTAMP() AS now"

	if err := config.Save(configFile, cfg); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", configFile)
	return nil
}

func readInput(path string) ([]workflow.Item, error) {
	var r io.Reader = os.Stdin
	if path != "-" && path != "" {
		f, err := os.Open(path) //nolint:gosec // path comes from the command line
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	return workflow.ReadItems(r)
}

func writeOutput(path string, items []workflow.Item) error {
	if path == "-" || path == "" {
		return workflow.WriteItems(os.Stdout, items)
	}

	f, err := os.Create(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := workflow.WriteItems(f, items); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
