package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-snowflake/pkg/binary"
	"github.com/ajitpratap0/nebula-snowflake/pkg/config"
	nerrors "github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/metrics"
	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
	"github.com/ajitpratap0/nebula-snowflake/pkg/snowflake"
	tu "github.com/ajitpratap0/nebula-snowflake/pkg/testutil"
	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

func newTestNode(t *testing.T, configure func(*config.Config), opts ...Option) (*Node, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := tu.NewMockDB(t)
	log := tu.TestLogger(t)
	client := snowflake.NewClientFromDB(db, snowflake.WithLogger(log))

	cfg := config.NewConfig()
	configure(cfg)

	opts = append([]Option{WithConnector(ClientConnector(client)), WithLogger(log)}, opts...)
	n, err := New(cfg, opts...)
	require.NoError(t, err)
	return n, mock
}

func items(objs ...map[string]interface{}) []workflow.Item {
	out := make([]workflow.Item, len(objs))
	for i, obj := range objs {
		out[i] = workflow.Item{JSON: models.RowFromMap(obj)}
	}
	return out
}

func affected(column string, n int) *sqlmock.Rows {
	return tu.Rows(column).AddRow(n)
}

func TestUpdate(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationUpdate
		cfg.Node.Table = "t"
		cfg.Node.Columns = "name"
		cfg.Node.UpdateKey = "id"
	})

	mock.ExpectQuery("UPDATE t SET id = ?,name = ? WHERE id = ?;").
		WithArgs(5, "X", 5).
		WillReturnRows(affected("number of rows updated", 1))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(map[string]interface{}{
		"id": float64(5), "name": "X", "ignored": true,
	}))
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, []string{"id", "name"}, out[0].JSON.Keys())
	assert.Equal(t, float64(5), out[0].JSON.Value("id"))
	assert.Equal(t, "X", out[0].JSON.Value("name"))
	assert.Equal(t, 0, out[0].PairedItem.Item)
}

func TestUpdate_OneStatementPerItem(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationUpdate
		cfg.Node.Table = "users"
		cfg.Node.Columns = "id, email"
		cfg.Node.UpdateKey = "id"
	})

	const stmt = "UPDATE users SET id = ?,email = ? WHERE id = ?;"
	mock.ExpectQuery(stmt).WithArgs(1, "a@x.io", 1).WillReturnRows(affected("number of rows updated", 1))
	mock.ExpectQuery(stmt).WithArgs(2, "b@x.io", 2).WillReturnRows(affected("number of rows updated", 1))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(
		map[string]interface{}{"id": float64(1), "email": "a@x.io"},
		map[string]interface{}{"id": float64(2), "email": "b@x.io"},
	))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[1].PairedItem.Item)
}

func TestInsert(t *testing.T) {
	collector := metrics.NewCollector("test")
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationInsert
		cfg.Node.Table = "t"
		cfg.Node.Columns = "a,b"
	}, WithMetrics(collector))

	mock.ExpectQuery("INSERT INTO t(a,b) VALUES (?,?),(?,?)").
		WithArgs(1, "x", 2, "y").
		WillReturnRows(affected("number of rows inserted", 2))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(
		map[string]interface{}{"a": float64(1), "b": "x"},
		map[string]interface{}{"a": float64(2), "b": "y"},
	))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "y", out[1].JSON.Value("b"))
	assert.Equal(t, 1, out[1].PairedItem.Item)

	const want = `
# HELP snowflake_node_rows_written_total Input rows sent to the warehouse, by operation
# TYPE snowflake_node_rows_written_total counter
snowflake_node_rows_written_total{component="test",operation="insert"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Registry(),
		strings.NewReader(want), "snowflake_node_rows_written_total"))
}

func TestInsert_Batches(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationInsert
		cfg.Node.Table = "t"
		cfg.Node.Columns = "a"
		cfg.Runtime.BatchSize = 2
	})

	mock.ExpectQuery("INSERT INTO t(a) VALUES (?),(?)").
		WithArgs(1, 2).
		WillReturnRows(affected("number of rows inserted", 2))
	mock.ExpectQuery("INSERT INTO t(a) VALUES (?)").
		WithArgs(3).
		WillReturnRows(affected("number of rows inserted", 1))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(
		map[string]interface{}{"a": float64(1)},
		map[string]interface{}{"a": float64(2)},
		map[string]interface{}{"a": float64(3)},
	))
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestInsert_MissingColumnBindsNull(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationInsert
		cfg.Node.Table = "t"
		cfg.Node.Columns = "a,b"
	})

	mock.ExpectQuery("INSERT INTO t(a,b) VALUES (?,?)").
		WithArgs("only a", nil).
		WillReturnRows(affected("number of rows inserted", 1))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(map[string]interface{}{"a": "only a"}))
	require.NoError(t, err)

	v, ok := out[0].JSON.Get("b")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestInsert_FailureStillReleasesSession(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationInsert
		cfg.Node.Table = "t"
		cfg.Node.Columns = "a"
	})

	sqlErr := errors.New("002003 (42S02): Table 'T' does not exist or not authorized")
	mock.ExpectQuery("INSERT INTO t(a) VALUES (?)").WithArgs(1).WillReturnError(sqlErr)
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(map[string]interface{}{"a": float64(1)}))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, sqlErr)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeQuery))
}

func TestExecuteQuery_JSON(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationExecuteQuery
		cfg.Node.Query = "SELECT id, name FROM users WHERE team = {{ $json.team }}"
	})

	mock.ExpectQuery("SELECT id, name FROM users WHERE team = 1").
		WillReturnRows(tu.Rows("id", "name").AddRow(10, "Ann"))
	mock.ExpectQuery("SELECT id, name FROM users WHERE team = 2").
		WillReturnRows(tu.Rows("id", "name").AddRow(20, "Bo").AddRow(21, "Cy"))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(
		map[string]interface{}{"team": float64(1)},
		map[string]interface{}{"team": float64(2)},
	))
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "Ann", out[0].JSON.Value("name"))
	assert.Equal(t, 0, out[0].PairedItem.Item)
	assert.Equal(t, "Cy", out[2].JSON.Value("name"))
	assert.Equal(t, 1, out[2].PairedItem.Item)
	assert.Equal(t, []string{"id", "name"}, out[2].JSON.Keys())
}

func TestExecuteQuery_CSV(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationExecuteQuery
		cfg.Node.OutputFormat = OutputFormatCSV
		cfg.Node.Query = "SELECT id, name FROM t"
		cfg.Runtime.StreamBuffer = 1
	})

	mock.ExpectQuery("SELECT id, name FROM t").
		WillReturnRows(tu.Rows("id", "name").AddRow(1, "A").AddRow(2, "B,C"))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(map[string]interface{}{}))
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, int64(2), out[0].JSON.Value("rowCount"))
	assert.Contains(t, out[0].JSON.Value("message"), "2 rows")

	data := out[0].Binary[BinaryPropertyName]
	require.NotNil(t, data)
	assert.Equal(t, "\"id\",\"name\"\n1,\"A\"\n2,\"B,C\"\n", string(data.Data))
	assert.Equal(t, "text/csv", data.MimeType)
	assert.Equal(t, config.DefaultFileName, data.FileName)
	assert.Equal(t, int64(len(data.Data)), data.FileSize)
}

func TestExecuteQuery_CSVEmptyResult(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationExecuteQuery
		cfg.Node.OutputFormat = OutputFormatCSV
		cfg.Node.Query = "SELECT id FROM t WHERE false"
		cfg.Node.FileName = "empty.csv"
	})

	mock.ExpectQuery("SELECT id FROM t WHERE false").
		WillReturnRows(tu.Rows("id"))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, int64(0), out[0].JSON.Value("rowCount"))
	data := out[0].Binary[BinaryPropertyName]
	assert.Empty(t, data.Data)
	assert.Equal(t, "empty.csv", data.FileName)
}

func TestExecuteQuery_CSVStreamError(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationExecuteQuery
		cfg.Node.OutputFormat = OutputFormatCSV
		cfg.Node.Query = "SELECT id FROM t"
	})

	streamErr := errors.New("chunk download failed")
	mock.ExpectQuery("SELECT id FROM t").
		WillReturnRows(tu.Rows("id").AddRow(1).AddRow(2).RowError(1, streamErr))
	mock.ExpectClose()

	out, err := n.Execute(context.Background(), items(map[string]interface{}{}))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, streamErr)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeQuery))
}

type failingSink struct {
	err error
}

// Store fails after the first byte so the query is known to be running
func (s failingSink) Store(_ context.Context, _ binary.Metadata, r io.Reader) (*workflow.BinaryData, error) {
	if _, err := io.ReadFull(r, make([]byte, 1)); err != nil {
		return nil, err
	}
	return nil, s.err
}

func (s failingSink) Close() error { return nil }

func TestExecuteQuery_CSVSinkError(t *testing.T) {
	sinkErr := errors.New("bucket not found")
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationExecuteQuery
		cfg.Node.OutputFormat = OutputFormatCSV
		cfg.Node.Query = "SELECT id FROM t"
		cfg.Runtime.StreamBuffer = 1
	}, WithSink(failingSink{err: sinkErr}))

	rows := tu.Rows("id")
	for i := 0; i < 10; i++ {
		rows.AddRow(i)
	}
	mock.ExpectQuery("SELECT id FROM t").WillReturnRows(rows)
	mock.ExpectClose()

	_, err := n.Execute(context.Background(), items(map[string]interface{}{}))
	assert.ErrorIs(t, err, sinkErr)
}

func TestExecute_DestroyErrorAfterSuccess(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationExecuteQuery
		cfg.Node.Query = "SELECT 1"
	})

	closeErr := errors.New("connection reset")
	mock.ExpectQuery("SELECT 1").WillReturnRows(tu.Rows("1").AddRow(1))
	mock.ExpectClose().WillReturnError(closeErr)

	out, err := n.Execute(context.Background(), items(map[string]interface{}{}))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, closeErr)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeDisconnect))
}

func TestExecute_DestroyErrorAfterFailureKeepsOperationError(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Operation = OperationExecuteQuery
		cfg.Node.Query = "SELEC 1"
	})

	syntaxErr := errors.New("001003 (42000): SQL compilation error")
	mock.ExpectQuery("SELEC 1").WillReturnError(syntaxErr)
	mock.ExpectClose().WillReturnError(errors.New("connection reset"))

	_, err := n.Execute(context.Background(), items(map[string]interface{}{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, syntaxErr)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeQuery))
}

func TestExecute_ConnectFailure(t *testing.T) {
	connectErr := nerrors.New(nerrors.ErrorTypeConnection, "failed to connect to account")
	cfg := config.NewConfig()
	cfg.Node.Query = "SELECT 1"

	n, err := New(cfg, WithConnector(func(context.Context) (Session, error) {
		return nil, connectErr
	}))
	require.NoError(t, err)

	out, err := n.Execute(context.Background(), items(map[string]interface{}{}))
	assert.Nil(t, out)
	assert.Equal(t, connectErr, err)
}

func TestTestConnection(t *testing.T) {
	n, mock := newTestNode(t, func(cfg *config.Config) {
		cfg.Node.Query = "SELECT 1"
	})
	mock.ExpectClose()

	assert.NoError(t, n.TestConnection(context.Background()))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params config.NodeConfig
		errMsg string
	}{
		{"unknown operation", config.NodeConfig{Operation: "delete"}, "unsupported operation"},
		{"query missing", config.NodeConfig{Operation: OperationExecuteQuery}, "query is required"},
		{"bad output format", config.NodeConfig{Operation: OperationExecuteQuery, Query: "SELECT 1", OutputFormat: "xml"}, "unsupported outputFormat"},
		{"insert without table", config.NodeConfig{Operation: OperationInsert, Columns: "a"}, "table is required"},
		{"insert without columns", config.NodeConfig{Operation: OperationInsert, Table: "t", Columns: " , "}, "columns are required"},
		{"update without key", config.NodeConfig{Operation: OperationUpdate, Table: "t"}, "updateKey is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			cfg.Node = tt.params

			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeValidation))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCredentialConnector_MissingCredentials(t *testing.T) {
	for _, authType := range []string{config.AuthTypePassword, config.AuthTypeOAuth2} {
		t.Run(authType, func(t *testing.T) {
			connect := CredentialConnector(config.CredentialsConfig{}, authType, nil, nil)
			_, err := connect(context.Background())
			assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeAuthentication), fmt.Sprint(err))
		})
	}
}
