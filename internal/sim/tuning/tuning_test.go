package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tick_rate_hz: 60
load_radius: 3
evict_radius: 6
generator:
  kind: hills
  surface_y: -1
main_entity:
  velocity: [64, 0]
`), 0o644))

	tu, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, tu.TickRateHz)
	assert.Equal(t, 3, tu.LoadRadius)
	assert.Equal(t, 6, tu.EvictRadius)
	assert.Equal(t, "hills", tu.Generator.Kind)
	assert.Equal(t, int64(-1), tu.Generator.SurfaceY)
	assert.Equal(t, [2]float32{64, 0}, tu.MainEntity.Velocity)

	// Untouched fields keep their defaults.
	assert.Equal(t, float32(16), tu.TileResolution)
	assert.Equal(t, 96.0, tu.Generator.Wavelength)
	assert.Equal(t, 20, tu.Observer.FrameHz)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("load_radius: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
