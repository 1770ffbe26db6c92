package snowflake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nerrors "github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/metrics"
	tu "github.com/ajitpratap0/nebula-snowflake/pkg/testutil"
)

func connect(t *testing.T, opts ...tu.MockOption) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := tu.NewMockDB(t, opts...)
	client := NewClientFromDB(db, WithLogger(tu.TestLogger(t)))

	sess, err := client.Connect(context.Background())
	require.NoError(t, err)
	return sess, mock
}

func TestNewClient_RequiresAccount(t *testing.T) {
	_, err := NewClient(nil)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeConfig))
}

func TestConnectAndDestroy(t *testing.T) {
	sess, mock := connect(t)
	mock.ExpectClose()

	require.NoError(t, sess.Destroy(context.Background()))
	assert.True(t, sess.Destroyed())

	// second call is a no-op with the same outcome
	assert.NoError(t, sess.Destroy(context.Background()))
}

func TestConnect_Failure(t *testing.T) {
	db, mock := tu.NewMockDB(t, tu.WithPingMonitoring())
	authErr := errors.New("390100: Incorrect username or password was specified")
	mock.ExpectPing().WillReturnError(authErr)
	mock.ExpectClose()

	collector := metrics.NewCollector("test")
	client := NewClientFromDB(db, WithMetrics(collector))

	sess, err := client.Connect(context.Background())
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeConnection))
	assert.ErrorIs(t, err, authErr)
	assert.Contains(t, err.Error(), "Incorrect username or password")
}

func TestDestroy_Failure(t *testing.T) {
	sess, mock := connect(t)
	closeErr := errors.New("session already closed")
	mock.ExpectClose().WillReturnError(closeErr)

	err := sess.Destroy(context.Background())
	require.Error(t, err)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeDisconnect))
	assert.ErrorIs(t, err, closeErr)

	assert.Equal(t, err, sess.Destroy(context.Background()))
}

func TestSessionMetrics(t *testing.T) {
	db, mock := tu.NewMockDB(t)
	mock.ExpectClose()

	collector := metrics.NewCollector("test")
	client := NewClientFromDB(db, WithMetrics(collector))

	sess, err := client.Connect(context.Background())
	require.NoError(t, err)

	const open = `
# HELP snowflake_node_open_sessions Warehouse sessions currently open
# TYPE snowflake_node_open_sessions gauge
snowflake_node_open_sessions{component="test"} %d
`
	require.NoError(t, testutil.GatherAndCompare(collector.Registry(),
		strings.NewReader(fmt.Sprintf(open, 1)), "snowflake_node_open_sessions"))

	require.NoError(t, sess.Destroy(context.Background()))
	require.NoError(t, sess.Destroy(context.Background()))

	require.NoError(t, testutil.GatherAndCompare(collector.Registry(),
		strings.NewReader(fmt.Sprintf(open, 0)), "snowflake_node_open_sessions"))
}
