package node

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/nebula-snowflake/pkg/binary"
	"github.com/ajitpratap0/nebula-snowflake/pkg/csvbridge"
	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/logger"
	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
	"github.com/ajitpratap0/nebula-snowflake/pkg/pool"
	stringpool "github.com/ajitpratap0/nebula-snowflake/pkg/strings"
	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

const csvMimeType = "text/csv"

// executeQuery runs the query once per item and emits every result row
// paired to the item it was resolved against
func (n *Node) executeQuery(ctx context.Context, sess Session, items []workflow.Item) ([]workflow.Item, error) {
	out := make([]workflow.Item, 0, len(items))
	for i, item := range items {
		query := workflow.ResolveExpressions(n.params.Query, item)

		rows, err := sess.Execute(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, workflow.NewItem(row, i))
		}
	}
	return out, nil
}

// exportCSV streams the result of the query resolved against the first
// item into a CSV attachment. The row stream and the sink run concurrently
// with the bridge between them.
func (n *Node) exportCSV(ctx context.Context, sess Session, items []workflow.Item) ([]workflow.Item, error) {
	var first workflow.Item
	if len(items) > 0 {
		first = items[0]
	}
	query := workflow.ResolveExpressions(n.params.Query, first)

	bridge := csvbridge.New(n.runtime.StreamBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sess.ExecuteStream(gctx, query, nil, func(row *models.Row) error {
			return bridge.OnRowContext(gctx, row)
		})
		bridge.Finish(err)
		return err
	})

	var (
		data     *workflow.BinaryData
		storeErr error
	)
	g.Go(func() error {
		defer bridge.CloseRead()
		data, storeErr = n.sink.Store(gctx, binary.Metadata{
			FileName: n.params.FileName,
			MimeType: csvMimeType,
		}, bridge)
		return storeErr
	})

	waitErr := g.Wait()

	// a warehouse stream failure wins over the sink error it caused
	if streamErr := bridge.Err(); streamErr != nil && !(storeErr != nil && consumerAborted(streamErr)) {
		return nil, streamErr
	}
	if storeErr != nil {
		return nil, storeErr
	}
	if waitErr != nil {
		return nil, waitErr
	}

	rowCount := bridge.RowCount()
	n.metrics.CSVBytes(bridge.BytesWritten())
	logger.FromContext(ctx, n.logger).Debug("csv export stored",
		zap.Int64("rows", rowCount),
		zap.Int64("bytes", bridge.BytesWritten()),
		zap.String("file_name", data.FileName))

	row := models.NewRow(2)
	row.Set("rowCount", rowCount)
	row.Set("message", stringpool.Sprintf("Query executed successfully. %d rows exported to %s", rowCount, data.FileName))

	item := workflow.NewItem(row, 0)
	item.Binary = map[string]*workflow.BinaryData{BinaryPropertyName: data}
	return []workflow.Item{item}, nil
}

// consumerAborted reports whether a stream error only reflects the consumer
// giving up first
func consumerAborted(err error) bool {
	return errors.Is(err, csvbridge.ErrReaderClosed) ||
		errors.Is(err, context.Canceled)
}

// insert sends the items in chunks of batch_size rows, one statement per chunk
func (n *Node) insert(ctx context.Context, sess Session, items []workflow.Item) ([]workflow.Item, error) {
	batchSize := n.runtime.BatchSize
	if batchSize <= 0 {
		batchSize = len(items)
	}

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		binds := pool.GetBinds(len(chunk) * len(n.columns))
		for _, item := range chunk {
			appendBinds(binds, item.JSON, n.columns)
		}

		_, err := sess.Execute(ctx, buildInsertSQL(n.params.Table, n.columns, len(chunk)), binds.Values())
		pool.PutBinds(binds)
		if err != nil {
			return nil, err
		}
		n.metrics.RowsWritten(OperationInsert, len(chunk))
	}

	return pickColumns(items, n.columns), nil
}

// update runs one keyed statement per item
func (n *Node) update(ctx context.Context, sess Session, items []workflow.Item) ([]workflow.Item, error) {
	columns := withUpdateKey(n.columns, n.params.UpdateKey)
	sqlText := buildUpdateSQL(n.params.Table, columns, n.params.UpdateKey)

	for _, item := range items {
		binds := pool.GetBinds(len(columns) + 1)
		appendBinds(binds, item.JSON, columns)
		binds.Append(bindValue(item.JSON.Value(n.params.UpdateKey)))

		_, err := sess.Execute(ctx, sqlText, binds.Values())
		pool.PutBinds(binds)
		if err != nil {
			return nil, err
		}
		n.metrics.RowsWritten(OperationUpdate, 1)
	}

	return pickColumns(items, columns), nil
}

func pickColumns(items []workflow.Item, columns []string) []workflow.Item {
	out := make([]workflow.Item, len(items))
	for i, item := range items {
		out[i] = workflow.NewItem(item.JSON.Pick(columns), i)
	}
	return out
}
