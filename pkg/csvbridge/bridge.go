// Package csvbridge turns a push-based stream of rows into a pull-based
// stream of CSV text.
//
// The producer side calls OnRow once per row and Finish exactly once when
// the row stream ends. The consumer side reads the CSV text through the
// io.Reader interface. Only one serialized line is built at a time; lines
// travel to the reader over a bounded channel.
//
// Output format:
//   - the header line holds the column names of the first row, each
//     double-quoted, comma-joined and newline-terminated
//   - every row, the first included, produces one line with its values in
//     header order: strings double-quoted with inner quotes doubled, nil or
//     missing values empty, other scalars written verbatim
//   - columns absent from the first row are ignored
package csvbridge

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
	stringpool "github.com/ajitpratap0/nebula-snowflake/pkg/strings"
)

// DefaultBufferSize is the number of lines that may be queued ahead of the reader
const DefaultBufferSize = 256

// ErrReaderClosed is returned by OnRow once the consumer stopped reading
var ErrReaderClosed = errors.New(errors.ErrorTypeData, "csv reader closed")

// outcome is the terminal state of a bridge, written exactly once
type outcome struct {
	err error
}

// Bridge converts rows into CSV text chunks. A Bridge serves one export
// and must not be reused.
type Bridge struct {
	lines chan []byte

	// readerDone is closed when the consumer gives up
	readerDone chan struct{}
	readerOnce sync.Once

	finishOnce sync.Once
	result     atomic.Pointer[outcome]

	headers  []string
	rowCount atomic.Int64
	bytes    atomic.Int64

	// pending holds the part of the current line not yet handed to Read
	pending []byte
}

// New creates a bridge that queues at most bufferSize lines ahead of the reader
func New(bufferSize int) *Bridge {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bridge{
		lines:      make(chan []byte, bufferSize),
		readerDone: make(chan struct{}),
	}
}

// OnRow serializes one row. The header line is emitted before the first
// data line. It blocks while the queue is full and returns ErrReaderClosed
// when the consumer has stopped reading.
func (b *Bridge) OnRow(row *models.Row) error {
	return b.OnRowContext(context.Background(), row)
}

// OnRowContext is OnRow with cancellation of the blocking send
func (b *Bridge) OnRowContext(ctx context.Context, row *models.Row) error {
	if b.headers == nil {
		b.headers = append(make([]string, 0, row.Len()), row.Keys()...)
		if err := b.emit(ctx, headerLine(b.headers)); err != nil {
			return err
		}
	}

	if err := b.emit(ctx, dataLine(b.headers, row)); err != nil {
		return err
	}
	b.rowCount.Add(1)
	return nil
}

func (b *Bridge) emit(ctx context.Context, line []byte) error {
	select {
	case b.lines <- line:
		b.bytes.Add(int64(len(line)))
		return nil
	case <-b.readerDone:
		return ErrReaderClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish records the terminal outcome of the row stream and ends the
// sequence seen by the reader. A nil err ends it cleanly; a non-nil err
// becomes the stream error. Only the first call has an effect.
// Finish must not be called concurrently with OnRow.
func (b *Bridge) Finish(err error) {
	b.finishOnce.Do(func() {
		b.result.Store(&outcome{err: err})
		close(b.lines)
	})
}

// Read implements io.Reader. Queued lines are drained first; afterwards
// Read returns io.EOF on a clean finish or the stream error otherwise.
func (b *Bridge) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(p) {
		if len(b.pending) == 0 {
			var line []byte
			var ok bool
			if n == 0 {
				line, ok = <-b.lines
			} else {
				select {
				case line, ok = <-b.lines:
				default:
					return n, nil
				}
			}
			if !ok {
				if n > 0 {
					return n, nil
				}
				return 0, b.terminalError()
			}
			b.pending = line
		}

		copied := copy(p[n:], b.pending)
		b.pending = b.pending[copied:]
		n += copied
	}
	return n, nil
}

func (b *Bridge) terminalError() error {
	if res := b.result.Load(); res != nil && res.err != nil {
		return res.err
	}
	return io.EOF
}

// CloseRead tells the producer the consumer has stopped reading, unblocking
// any pending OnRow. It is safe to call more than once.
func (b *Bridge) CloseRead() {
	b.readerOnce.Do(func() {
		close(b.readerDone)
	})
}

// Err returns the stream error recorded by Finish, if any
func (b *Bridge) Err() error {
	if res := b.result.Load(); res != nil {
		return res.err
	}
	return nil
}

// Finished reports whether Finish has been called
func (b *Bridge) Finished() bool {
	return b.result.Load() != nil
}

// RowCount returns the number of rows serialized so far
func (b *Bridge) RowCount() int64 {
	return b.rowCount.Load()
}

// BytesWritten returns the number of CSV bytes queued so far
func (b *Bridge) BytesWritten() int64 {
	return b.bytes.Load()
}

// Headers returns the column names captured from the first row
func (b *Bridge) Headers() []string {
	return b.headers
}

func headerLine(headers []string) []byte {
	builder := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(builder, stringpool.Small)

	for i, h := range headers {
		if i > 0 {
			builder.WriteByte(',')
		}
		stringpool.WriteQuotedField(builder, h)
	}
	builder.WriteByte('\n')

	return append([]byte(nil), builder.Bytes()...)
}

func dataLine(headers []string, row *models.Row) []byte {
	builder := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(builder, stringpool.Small)

	for i, h := range headers {
		if i > 0 {
			builder.WriteByte(',')
		}
		writeField(builder, row.Value(h))
	}
	builder.WriteByte('\n')

	return append([]byte(nil), builder.Bytes()...)
}

func writeField(builder *stringpool.Builder, value interface{}) {
	switch v := value.(type) {
	case nil:
	case string:
		stringpool.WriteQuotedField(builder, v)
	default:
		builder.WriteString(stringpool.ValueToString(v))
	}
}
