package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opener func(t *testing.T, path string) MetadataStore

func backends() map[string]struct {
	file string
	open opener
} {
	return map[string]struct {
		file string
		open opener
	}{
		BackendFile: {"metadata.txt", func(t *testing.T, path string) MetadataStore {
			s, err := OpenFileStore(path)
			require.NoError(t, err)
			return s
		}},
		BackendSQLite: {"metadata.db", func(t *testing.T, path string) MetadataStore {
			s, err := OpenSQLiteStore(path)
			require.NoError(t, err)
			return s
		}},
	}
}

func TestMetadataStore_AppendGet(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "states", b.file)
			s := b.open(t, path)
			defer s.Close()

			assert.Equal(t, 0, s.Size())
			require.NoError(t, s.Append(ctx, "A", "B"))
			require.NoError(t, s.Append(ctx, "C"))
			require.NoError(t, s.Append(ctx))
			assert.Equal(t, 3, s.Size())
			assert.Equal(t, path, s.Path())

			for i, want := range []string{"A", "B", "C"} {
				got, err := s.Get(ctx, i)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			for _, pos := range []int{-1, 3, 100} {
				_, err := s.Get(ctx, pos)
				assert.ErrorIs(t, err, ErrIndexOutOfRange)
			}
		})
	}
}

func TestMetadataStore_Reopen(t *testing.T) {
	records := []string{
		"plain",
		"multi\nline\r\ndocstring",
		`C:\path\to\file`,
		`literal \n stays`,
		"",
		`{"class_name":"X","docstring":"a\nb"}`,
	}
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), b.file)
			s := b.open(t, path)
			require.NoError(t, s.Append(ctx, records...))
			require.NoError(t, s.Close())

			reopened := b.open(t, path)
			defer reopened.Close()
			assert.Equal(t, len(records), reopened.Size())
			all, err := reopened.All(ctx)
			require.NoError(t, err)
			assert.Equal(t, records, all)
		})
	}
}

func TestMetadataStore_TruncateRewrite(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), b.file)
			s := b.open(t, path)
			require.NoError(t, s.Append(ctx, "a", "b", "c", "d"))

			require.NoError(t, s.Truncate(ctx, 2))
			assert.Equal(t, 2, s.Size())
			assert.ErrorIs(t, s.Truncate(ctx, 3), ErrIndexOutOfRange)

			require.NoError(t, s.Append(ctx, "e"))
			got, err := s.Get(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, "e", got)

			require.NoError(t, s.Rewrite(ctx, []string{"x", "y"}))
			require.NoError(t, s.Close())

			reopened := b.open(t, path)
			defer reopened.Close()
			all, err := reopened.All(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"x", "y"}, all)
		})
	}
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("", filepath.Join(dir, "m.txt"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(BackendSQLite, filepath.Join(dir, "m.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", filepath.Join(dir, "m"))
	assert.Error(t, err)
}
