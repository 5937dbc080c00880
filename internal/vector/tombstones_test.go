package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTombstones_Basics(t *testing.T) {
	ts := NewTombstones()
	assert.Nil(t, ts.Filter())
	ts.Add(3)
	ts.Add(1)
	ts.Add(3)
	assert.Equal(t, 2, ts.Len())
	assert.True(t, ts.Contains(1))
	assert.False(t, ts.Contains(2))
	assert.False(t, ts.Contains(-1))
	assert.Equal(t, []int{1, 3}, ts.Positions())

	f := ts.Filter()
	require.NotNil(t, f)
	assert.True(t, f(3))

	ts.RemoveFrom(2)
	assert.Equal(t, []int{1}, ts.Positions())
	ts.Clear()
	assert.Equal(t, 0, ts.Len())
}

func TestTombstones_SaveLoad(t *testing.T) {
	path := TombstonePath(filepath.Join(t.TempDir(), "idx", "index.vsx"))
	ts := NewTombstones()
	ts.Add(0)
	ts.Add(42)
	require.NoError(t, ts.Save(path))

	loaded, err := LoadTombstones(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 42}, loaded.Positions())

	// Saving an empty set removes the sidecar.
	require.NoError(t, NewTombstones().Save(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadTombstones_Missing(t *testing.T) {
	ts, err := LoadTombstones(filepath.Join(t.TempDir(), "none.tomb"))
	require.NoError(t, err)
	assert.Equal(t, 0, ts.Len())
}

func TestLoadTombstones_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tomb")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))
	_, err := LoadTombstones(path)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}
