package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// MockOption tweaks the mock database
type MockOption func(*mockSettings)

type mockSettings struct {
	monitorPings bool
}

// WithPingMonitoring makes pings consume ExpectPing expectations
func WithPingMonitoring() MockOption {
	return func(s *mockSettings) {
		s.monitorPings = true
	}
}

// NewMockDB returns a database/sql handle backed by sqlmock. Statements are
// matched by exact text. Unmet expectations fail the test at cleanup.
func NewMockDB(t *testing.T, opts ...MockOption) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	settings := &mockSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.MonitorPingsOption(settings.monitorPings),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
	})
	return db, mock
}

// Rows builds mock result rows with a column definition per column, which
// the executors need to read column types
func Rows(columns ...string) *sqlmock.Rows {
	defs := make([]*sqlmock.Column, len(columns))
	for i, c := range columns {
		defs[i] = sqlmock.NewColumn(c)
	}
	return sqlmock.NewRowsWithColumnDefinition(defs...)
}
