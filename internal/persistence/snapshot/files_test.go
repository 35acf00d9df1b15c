package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOrdersByTick(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Latest(dir))

	for _, tick := range []uint64{120, 9, 30} {
		require.NoError(t, WriteSnapshot(Path(dir, tick), SnapshotV1{Header: Header{Version: Version, Tick: tick}}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshots", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshots", "abc.snap.zst"), []byte("x"), 0o644))

	paths, err := List(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, Path(dir, 9), paths[0])
	assert.Equal(t, Path(dir, 120), Latest(dir))

	h, err := ReadHeader(Latest(dir))
	require.NoError(t, err)
	assert.Equal(t, uint64(120), h.Tick)
}
