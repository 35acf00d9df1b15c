package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilestream.dev/internal/sim/world"
)

func TestTickLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for i := uint64(0); i < 3; i++ {
		require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: i, Loaded: int(i), Resident: 9}))
	}
	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 3, Rebase: [2]int64{1, 0}, Offset: [2]int64{1, 0}}))
	require.NoError(t, l.Close())

	files, err := TickFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	got, err := ReadTicks(files[0])
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 2, got[2].Loaded)
	assert.Equal(t, [2]int64{1, 0}, got[3].Rebase)
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "ticks")
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	require.NoError(t, w.Write(world.TickLogEntry{Tick: 1}))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, w.Write(world.TickLogEntry{Tick: 2}))
	require.NoError(t, w.Close())

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "ticks-2026-03-01-10.jsonl.zst"),
		filepath.Join(dir, "ticks-2026-03-01-11.jsonl.zst"),
	}, files)
}

func TestAppendAfterReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	for i := uint64(0); i < 2; i++ {
		l := NewTickLogger(dir)
		l.w.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
		require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: i}))
		require.NoError(t, l.Close())
	}
	files, err := TickFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	got, err := ReadTicks(files[0])
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
