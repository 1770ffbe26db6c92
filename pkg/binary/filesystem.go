package binary

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

type filesystemBackend struct {
	dir string
}

// NewFilesystemSink writes attachments below dir
func NewFilesystemSink(dir string, opts Options) (*Store, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "filesystem sink needs a directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create binary directory")
	}
	return newStore(&filesystemBackend{dir: dir}, opts), nil
}

func (b *filesystemBackend) put(_ context.Context, obj object, r io.Reader) (*workflow.BinaryData, error) {
	path := filepath.Join(b.dir, filepath.FromSlash(strings.TrimPrefix(obj.key, "/")))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	f, err := os.Create(path) //nolint:gosec // path is built from a generated id below the configured directory
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &workflow.BinaryData{Location: path}, nil
}

func (b *filesystemBackend) close() error { return nil }

func (b *filesystemBackend) name() string { return "filesystem" }
