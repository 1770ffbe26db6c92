// Package testutil provides test helpers for the Snowflake node: loggers,
// sqlmock-backed databases and the live-warehouse integration suite.
package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a logger that writes to the test output
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}
