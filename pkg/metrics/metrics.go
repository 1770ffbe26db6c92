// Package metrics provides Prometheus instrumentation for the Snowflake node.
//
// # Overview
//
// A Collector owns its own registry so several node invocations (or tests)
// can run in one process without duplicate registration panics.
//
//	collector := metrics.NewCollector("snowflake")
//	timer := collector.StartStatement("insert")
//	_, err := session.Execute(ctx, sql, binds)
//	timer.Stop(err)
//
// Metrics can be served by any HTTP handler through Registry(), or written
// to a node-exporter textfile with WriteTextfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "snowflake_node"

// Collector groups the node's metrics on a dedicated registry
type Collector struct {
	name     string
	registry *prometheus.Registry

	statements        *prometheus.CounterVec   // statements by operation and status
	statementDuration *prometheus.HistogramVec // statement latency by operation
	rowsReturned      *prometheus.CounterVec   // rows read back by mode
	rowsWritten       *prometheus.CounterVec   // rows sent as binds by operation
	csvBytes          prometheus.Counter       // CSV bytes handed to the binary sink
	openSessions      prometheus.Gauge         // sessions currently connected
	connectFailures   prometheus.Counter
}

// NewCollector creates a collector labelled with the component name
func NewCollector(name string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"component": name}

	return &Collector{
		name:     name,
		registry: reg,
		statements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "statements_total",
			Help:        "SQL statements executed, by operation and status",
			ConstLabels: constLabels,
		}, []string{"operation", "status"}),
		statementDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "statement_duration_seconds",
			Help:        "Statement execution latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"operation"}),
		rowsReturned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rows_returned_total",
			Help:        "Result rows read from the warehouse, by mode (buffered or stream)",
			ConstLabels: constLabels,
		}, []string{"mode"}),
		rowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rows_written_total",
			Help:        "Input rows sent to the warehouse, by operation",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		csvBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "csv_bytes_total",
			Help:        "CSV bytes produced by streaming exports",
			ConstLabels: constLabels,
		}),
		openSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "open_sessions",
			Help:        "Warehouse sessions currently open",
			ConstLabels: constLabels,
		}),
		connectFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "connect_failures_total",
			Help:        "Failed attempts to open a warehouse session",
			ConstLabels: constLabels,
		}),
	}
}

// Name returns the component name
func (c *Collector) Name() string {
	return c.name
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StatementTimer measures one statement execution
type StatementTimer struct {
	collector *Collector
	operation string
	start     time.Time
}

// StartStatement starts timing a statement for the given operation
func (c *Collector) StartStatement(operation string) *StatementTimer {
	return &StatementTimer{collector: c, operation: operation, start: time.Now()}
}

// Stop records the statement outcome and returns its duration
func (t *StatementTimer) Stop(err error) time.Duration {
	if t == nil || t.collector == nil {
		return 0
	}
	d := time.Since(t.start)
	status := "success"
	if err != nil {
		status = "error"
	}
	t.collector.statements.WithLabelValues(t.operation, status).Inc()
	t.collector.statementDuration.WithLabelValues(t.operation).Observe(d.Seconds())
	return d
}

// RowsReturned counts rows read back in the given mode
func (c *Collector) RowsReturned(mode string, n int) {
	if c == nil {
		return
	}
	c.rowsReturned.WithLabelValues(mode).Add(float64(n))
}

// RowsWritten counts input rows sent for the given operation
func (c *Collector) RowsWritten(operation string, n int) {
	if c == nil {
		return
	}
	c.rowsWritten.WithLabelValues(operation).Add(float64(n))
}

// CSVBytes counts CSV bytes produced
func (c *Collector) CSVBytes(n int64) {
	if c == nil {
		return
	}
	c.csvBytes.Add(float64(n))
}

// SessionOpened records a connected session
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.openSessions.Inc()
}

// SessionClosed records a released session
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.openSessions.Dec()
}

// ConnectFailed records a failed connect
func (c *Collector) ConnectFailed() {
	if c == nil {
		return
	}
	c.connectFailures.Inc()
}

// WriteTextfile writes the collector's metrics in the node-exporter textfile format
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
