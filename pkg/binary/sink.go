// Package binary materializes binary attachments for workflow items.
//
// A Sink pulls an attachment's content from an io.Reader until EOF and
// stores it in memory, on the local filesystem, in S3 or in GCS. Content may
// be compressed on the way through; the stored file name then carries the
// algorithm's extension.
package binary

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-snowflake/pkg/compression"
	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

// Metadata describes an attachment before it is stored
type Metadata struct {
	FileName string
	MimeType string
}

// Sink stores attachment content
type Sink interface {
	// Store reads r until EOF and returns the stored attachment. An error
	// from r aborts the store and is returned.
	Store(ctx context.Context, meta Metadata, r io.Reader) (*workflow.BinaryData, error)
	// Close releases the sink's clients
	Close() error
}

// object is one attachment handed to a backend
type object struct {
	id          string
	key         string
	fileName    string
	contentType string
}

// backend writes one object's bytes to its storage
type backend interface {
	put(ctx context.Context, obj object, r io.Reader) (*workflow.BinaryData, error)
	close() error
	name() string
}

// Options tune a Store
type Options struct {
	Compression compression.Algorithm
	Level       compression.Level
	// Prefix is prepended to object keys
	Prefix string
	Logger *zap.Logger
}

// Store is a Sink writing through a storage backend
type Store struct {
	backend backend
	opts    Options
	logger  *zap.Logger
}

func newStore(b backend, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Compression == "" {
		opts.Compression = compression.None
	}
	return &Store{
		backend: b,
		opts:    opts,
		logger:  logger.With(zap.String("component", "binary"), zap.String("backend", b.name())),
	}
}

// Store implements Sink
func (s *Store) Store(ctx context.Context, meta Metadata, r io.Reader) (*workflow.BinaryData, error) {
	obj := object{
		id:          uuid.NewString(),
		fileName:    meta.FileName,
		contentType: meta.MimeType,
	}
	if s.opts.Compression != compression.None {
		obj.fileName += s.opts.Compression.Extension()
		obj.contentType = s.opts.Compression.MimeType()
	}
	obj.key = s.opts.Prefix + obj.id + "/" + obj.fileName

	body, wait := s.compress(r)
	counter := &countingReader{r: body}

	data, err := s.backend.put(ctx, obj, counter)
	if werr := wait(err); err == nil && werr != nil {
		err = werr
	}
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeStorage) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to store binary data").
			WithDetail("file_name", obj.fileName)
	}

	data.ID = obj.id
	data.FileName = obj.fileName
	data.FileExtension = extension(obj.fileName)
	data.MimeType = obj.contentType
	data.FileSize = counter.n.Load()
	if s.opts.Compression != compression.None {
		data.Compression = string(s.opts.Compression)
	}

	s.logger.Debug("binary data stored",
		zap.String("id", data.ID),
		zap.String("file_name", data.FileName),
		zap.Int64("bytes", data.FileSize),
		zap.String("location", data.Location))
	return data, nil
}

// Close implements Sink
func (s *Store) Close() error {
	return s.backend.close()
}

// compress returns the reader the backend consumes. With compression
// enabled, a goroutine encodes r into a pipe; wait stops it and returns its
// error once the backend is done with the pipe.
func (s *Store) compress(r io.Reader) (io.Reader, func(error) error) {
	if s.opts.Compression == compression.None {
		return r, func(error) error { return nil }
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go func() {
		w, err := compression.NewWriter(s.opts.Compression, s.opts.Level, pw)
		if err == nil {
			_, err = io.Copy(w, r)
			if cerr := w.Close(); err == nil {
				err = cerr
			}
		}
		pw.CloseWithError(err)
		done <- err
	}()

	return pr, func(putErr error) error {
		if putErr != nil {
			_ = pr.CloseWithError(putErr)
		}
		err := <-done
		_ = pr.Close()
		return err
	}
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func extension(fileName string) string {
	for i := len(fileName) - 1; i >= 0 && fileName[i] != '/'; i-- {
		if fileName[i] == '.' {
			return fileName[i+1:]
		}
	}
	return ""
}
