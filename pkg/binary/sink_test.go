package binary

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-snowflake/pkg/compression"
	"github.com/ajitpratap0/nebula-snowflake/pkg/config"
	nerrors "github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	tu "github.com/ajitpratap0/nebula-snowflake/pkg/testutil"
)

const csvContent = "\"id\",\"name\"\n1,\"A\"\n2,\"B,C\"\n"

var csvMeta = Metadata{FileName: "query_results.csv", MimeType: "text/csv"}

// failingReader returns its content and then err
type failingReader struct {
	r   io.Reader
	err error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink(Options{Logger: tu.TestLogger(t)})

	data, err := sink.Store(context.Background(), csvMeta, strings.NewReader(csvContent))
	require.NoError(t, err)

	assert.NotEmpty(t, data.ID)
	assert.Equal(t, "query_results.csv", data.FileName)
	assert.Equal(t, "csv", data.FileExtension)
	assert.Equal(t, "text/csv", data.MimeType)
	assert.Equal(t, int64(len(csvContent)), data.FileSize)
	assert.Equal(t, csvContent, string(data.Data))
	assert.Empty(t, data.Compression)
	assert.NoError(t, sink.Close())
}

func TestMemorySink_Compressed(t *testing.T) {
	sink := NewMemorySink(Options{Compression: compression.Gzip, Level: compression.Default})

	data, err := sink.Store(context.Background(), csvMeta, strings.NewReader(csvContent))
	require.NoError(t, err)

	assert.Equal(t, "query_results.csv.gz", data.FileName)
	assert.Equal(t, "gz", data.FileExtension)
	assert.Equal(t, "application/gzip", data.MimeType)
	assert.Equal(t, "gzip", data.Compression)
	assert.Equal(t, int64(len(data.Data)), data.FileSize)

	r, err := compression.NewReader(compression.Gzip, bytes.NewReader(data.Data))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, csvContent, string(out))
}

func TestSink_SourceError(t *testing.T) {
	streamErr := errors.New("stream broke")

	for _, alg := range []compression.Algorithm{compression.None, compression.Zstd} {
		t.Run(string(alg), func(t *testing.T) {
			sink := NewMemorySink(Options{Compression: alg, Level: compression.Default})
			_, err := sink.Store(context.Background(), csvMeta,
				&failingReader{r: strings.NewReader(csvContent), err: streamErr})

			require.Error(t, err)
			assert.ErrorIs(t, err, streamErr)
			assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeStorage))
		})
	}
}

func TestFilesystemSink(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFilesystemSink(dir, Options{Prefix: "exports/"})
	require.NoError(t, err)

	data, err := sink.Store(context.Background(), csvMeta, strings.NewReader(csvContent))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "exports", data.ID, "query_results.csv"), data.Location)
	assert.Nil(t, data.Data)

	content, err := os.ReadFile(data.Location)
	require.NoError(t, err)
	assert.Equal(t, csvContent, string(content))
}

func TestFilesystemSink_RemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFilesystemSink(dir, Options{})
	require.NoError(t, err)

	_, err = sink.Store(context.Background(), csvMeta,
		&failingReader{r: strings.NewReader(csvContent), err: errors.New("boom")})
	require.Error(t, err)

	var files []string
	require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, path)
		}
		return err
	}))
	assert.Empty(t, files)
}

func TestNewSink(t *testing.T) {
	sink, err := NewSink(context.Background(), config.BinaryConfig{Mode: config.BinaryModeMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Store{}, sink)

	sink, err = NewSink(context.Background(), config.BinaryConfig{
		Mode: config.BinaryModeFilesystem,
		Path: t.TempDir(),
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, sink)

	_, err = NewSink(context.Background(), config.BinaryConfig{Mode: "ftp"}, nil)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeConfig))

	_, err = NewSink(context.Background(), config.BinaryConfig{Compression: "brotli"}, nil)
	assert.Error(t, err)
}
