package world

import (
	"github.com/rotisserie/eris"

	"tilestream.dev/internal/sim/world/terrain/store"
)

var ErrInvalidConfig = eris.New("invalid world config")

type Config struct {
	ID         string
	TickRateHz int

	// Generator identity, recorded in snapshots so a resumed world
	// regenerates the same untouched terrain.
	Seed      int64
	Generator string
	SurfaceY  int64

	// TileResolution is the width of one tile in world units.
	TileResolution float32
	AtlasCols      int
	AtlasRows      int

	// Streaming window, in chunks (Chebyshev distance from the local origin).
	LoadRadius   int
	EvictRadius  int
	RenderRadius int

	SnapshotEveryTicks int
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz == 0 {
		c.TickRateHz = 30
	}
	if c.Generator == "" {
		c.Generator = "layered"
	}
	if c.TileResolution == 0 {
		c.TileResolution = store.DefaultGeometry.TileResolution
	}
	if c.AtlasCols == 0 {
		c.AtlasCols = store.DefaultGeometry.AtlasCols
	}
	if c.AtlasRows == 0 {
		c.AtlasRows = store.DefaultGeometry.AtlasRows
	}
	if c.RenderRadius == 0 {
		c.RenderRadius = c.EvictRadius
	}
}

// Validate checks the window and tick parameters after defaults.
func (c Config) Validate() error {
	switch {
	case c.TickRateHz <= 0:
		return eris.Wrapf(ErrInvalidConfig, "tick rate %d", c.TickRateHz)
	case c.TileResolution <= 0:
		return eris.Wrapf(ErrInvalidConfig, "tile resolution %v", c.TileResolution)
	case c.LoadRadius < 0:
		return eris.Wrapf(ErrInvalidConfig, "load radius %d", c.LoadRadius)
	case c.LoadRadius >= c.EvictRadius:
		return eris.Wrapf(ErrInvalidConfig, "load radius %d must be below evict radius %d", c.LoadRadius, c.EvictRadius)
	case c.RenderRadius < 0:
		return eris.Wrapf(ErrInvalidConfig, "render radius %d", c.RenderRadius)
	case c.SnapshotEveryTicks < 0:
		return eris.Wrapf(ErrInvalidConfig, "snapshot interval %d", c.SnapshotEveryTicks)
	}
	return nil
}

func (c Config) geometry() store.GeometryOptions {
	return store.GeometryOptions{
		TileResolution: c.TileResolution,
		AtlasCols:      c.AtlasCols,
		AtlasRows:      c.AtlasRows,
	}
}
