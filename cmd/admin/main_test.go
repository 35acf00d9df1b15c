package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "tilestream.dev/internal/persistence/log"
	"tilestream.dev/internal/sim/world"
)

func TestSummarizeTicks(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewTickLogger(dir)
	for _, e := range []world.TickLogEntry{
		{Tick: 4, Loaded: 9, Resident: 9, StepMS: 1.5},
		{Tick: 5, Offset: [2]int64{1, 0}, Rebase: [2]int64{1, 0}, Loaded: 3, Evicted: 0, Rebuilt: 3, StepMS: 0.5},
		{Tick: 6, Offset: [2]int64{1, 0}, Evicted: 3, Destroyed: 2, StepMS: 2.25},
	} {
		require.NoError(t, l.WriteTick(e))
	}
	require.NoError(t, l.Close())

	s, err := summarizeTicks(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Ticks)
	assert.Equal(t, uint64(4), s.FirstTick)
	assert.Equal(t, uint64(6), s.LastTick)
	assert.Equal(t, 12, s.Loaded)
	assert.Equal(t, 3, s.Evicted)
	assert.Equal(t, 2, s.Destroyed)
	assert.Equal(t, 1, s.Rebases)
	assert.Equal(t, [2]int64{1, 0}, s.Offset)
	assert.InDelta(t, 2.25, s.MaxStepMS, 1e-9)
}

func TestSummarizeTicksEmpty(t *testing.T) {
	s, err := summarizeTicks(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, s.Ticks)
}

func TestCallAdminExitCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_, _ = rw.Write([]byte(`{"tick":3}`))
	}))
	defer srv.Close()

	assert.Equal(t, 0, callAdmin(http.MethodPost, srv.URL+"/", "/admin/v1/snapshot", 0))
	assert.Equal(t, 1, callAdmin(http.MethodGet, srv.URL, "/admin/v1/snapshot", 0))
}
