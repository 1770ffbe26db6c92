package snowflake

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/snowflakedb/gosnowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
	"github.com/ajitpratap0/nebula-snowflake/pkg/observability"
)

// RowHandler receives streamed rows one at a time. A non-nil error aborts
// the stream.
type RowHandler func(row *models.Row) error

// Execute runs a statement with positional binds and buffers every result
// row. Statements without a result set return an empty slice.
func (s *Session) Execute(ctx context.Context, sqlText string, binds []interface{}) (rows []*models.Row, err error) {
	ctx, span := observability.StartSpan(ctx, "snowflake.execute",
		attribute.Int("snowflake.binds", len(binds)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	timer := s.client.metrics.StartStatement("execute")
	defer func() { timer.Stop(err) }()

	s.logger.Debug("executing statement", zap.String("sql", sqlText), zap.Int("binds", len(binds)))

	result, err := s.conn.QueryContext(ctx, sqlText, binds...)
	if err != nil {
		return nil, execError(err, sqlText)
	}
	defer result.Close()

	scanner, err := newRowScanner(result)
	if err != nil {
		return nil, execError(err, sqlText)
	}

	rows = make([]*models.Row, 0)
	for result.Next() {
		row, err := scanner.scan(result)
		if err != nil {
			return nil, execError(err, sqlText)
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, execError(err, sqlText)
	}

	s.client.metrics.RowsReturned("buffered", len(rows))
	span.SetAttributes(attribute.Int("snowflake.rows", len(rows)))
	return rows, nil
}

// ExecuteStream runs a statement with result chunks streamed from the
// warehouse and hands each row to onRow, in order, as it arrives. It returns
// once the result set is exhausted, onRow fails, or the stream breaks.
// Rows delivered before a failure are not taken back.
func (s *Session) ExecuteStream(ctx context.Context, sqlText string, binds []interface{}, onRow RowHandler) (err error) {
	ctx, span := observability.StartSpan(ctx, "snowflake.execute_stream",
		attribute.Int("snowflake.binds", len(binds)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.checkOpen(); err != nil {
		return err
	}

	timer := s.client.metrics.StartStatement("execute_stream")
	defer func() { timer.Stop(err) }()

	s.logger.Debug("streaming statement", zap.String("sql", sqlText), zap.Int("binds", len(binds)))

	result, err := s.conn.QueryContext(gosnowflake.WithStreamDownloader(ctx), sqlText, binds...)
	if err != nil {
		return execError(err, sqlText)
	}
	defer result.Close()

	scanner, err := newRowScanner(result)
	if err != nil {
		return execError(err, sqlText)
	}

	count := 0
	defer func() {
		s.client.metrics.RowsReturned("stream", count)
		span.SetAttributes(attribute.Int("snowflake.rows", count))
	}()

	for result.Next() {
		row, err := scanner.scan(result)
		if err != nil {
			return execError(err, sqlText)
		}
		if err := onRow(row); err != nil {
			return err
		}
		count++
	}
	if err := result.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "result stream failed").
			WithDetail("rows_delivered", count)
	}
	return nil
}

func execError(err error, sqlText string) error {
	if errors.IsType(err, errors.ErrorTypeQuery) {
		return err
	}
	return errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute statement").
		WithDetail("sql", sqlText)
}

// rowScanner converts driver rows into models.Row values in column order
type rowScanner struct {
	columns []string
	types   []string
	values  []interface{}
	ptrs    []interface{}
}

func newRowScanner(rows *sql.Rows) (*rowScanner, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	types := make([]string, len(columns))
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			types[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	rs := &rowScanner{
		columns: columns,
		types:   types,
		values:  make([]interface{}, len(columns)),
		ptrs:    make([]interface{}, len(columns)),
	}
	for i := range rs.values {
		rs.ptrs[i] = &rs.values[i]
	}
	return rs, nil
}

func (rs *rowScanner) scan(rows *sql.Rows) (*models.Row, error) {
	if err := rows.Scan(rs.ptrs...); err != nil {
		return nil, err
	}

	row := models.NewRow(len(rs.columns))
	for i, col := range rs.columns {
		row.Set(col, normalizeValue(rs.types[i], rs.values[i]))
		rs.values[i] = nil
	}
	return row, nil
}

// normalizeValue turns driver text for numeric and boolean columns into Go
// scalars. Values that do not parse are kept as text.
func normalizeValue(dbType string, value interface{}) interface{} {
	if b, ok := value.([]byte); ok {
		value = string(b)
	}

	text, ok := value.(string)
	if !ok {
		return value
	}

	switch dbType {
	case "FIXED", "NUMBER", "DECIMAL", "INTEGER", "INT", "BIGINT":
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil && exactFloat(text, f) {
			return f
		}
	case "REAL", "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case "BOOLEAN":
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	}
	return text
}

// exactFloat reports whether f prints back as the decimal text, ignoring
// trailing fractional zeros. Values that would round stay as driver text.
func exactFloat(text string, f float64) bool {
	if strings.IndexByte(text, '.') >= 0 {
		text = strings.TrimRight(strings.TrimRight(text, "0"), ".")
	}
	return strconv.FormatFloat(f, 'f', -1, 64) == text
}
