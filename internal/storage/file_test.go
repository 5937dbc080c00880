package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileStore_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none", "metadata.txt")
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Size())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "open must not create the file")
}

func TestOpenFileStore_EmptyPath(t *testing.T) {
	_, err := OpenFileStore("")
	assert.Error(t, err)
}

func TestFileStore_OneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.txt")
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), "A", "two\nlines", `back\slash`))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A\ntwo\\nlines\nback\\\\slash\n", string(data))
}

func TestFileStore_ReadsExistingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.txt")
	// CRLF endings and a missing final newline are accepted.
	require.NoError(t, os.WriteFile(path, []byte("first\r\nsecond\n\nlast"), 0644))

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "", "last"}, all)
}

func TestFileStore_AppendFailureKeepsState(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the file makes every append fail.
	path := filepath.Join(dir, "metadata.txt")
	require.NoError(t, os.Mkdir(path, 0755))

	s := &FileStore{path: path, records: []string{"A"}}
	err := s.Append(context.Background(), "B")
	assert.Error(t, err)
	assert.Equal(t, 1, s.Size())
}

func TestEscapeRoundTrip(t *testing.T) {
	for _, in := range []string{"", "a", "\\", "\n", "\r\n", `\n`, "a\\\nb", "trailing\\"} {
		out := escapeRecord(in)
		assert.NotContains(t, out, "\n")
		assert.NotContains(t, out, "\r")
		assert.Equal(t, in, unescapeRecord(out), "%q", in)
	}
}
