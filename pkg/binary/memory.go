package binary

import (
	"bytes"
	"context"
	"io"

	"github.com/ajitpratap0/nebula-snowflake/pkg/workflow"
)

type memoryBackend struct{}

// NewMemorySink keeps attachment content inline in the item
func NewMemorySink(opts Options) *Store {
	return newStore(memoryBackend{}, opts)
}

func (memoryBackend) put(_ context.Context, _ object, r io.Reader) (*workflow.BinaryData, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return &workflow.BinaryData{Data: buf.Bytes()}, nil
}

func (memoryBackend) close() error { return nil }

func (memoryBackend) name() string { return "memory" }
