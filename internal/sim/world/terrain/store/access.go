package store

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"tilestream.dev/internal/sim/world/terrain/tile"
)

// TileAt returns a mutable reference to the tile at an absolute position,
// paging the owning chunk in through the loader when it is not resident.
// The chunk is marked dirty.
func (c *Container) TileAt(p TilePos) (*tile.Tile, error) {
	cc, lx, ly := Decompose(p)
	ch := c.chunks[cc]
	if ch == nil {
		if c.loader == nil {
			return nil, eris.Wrapf(ErrNotResident, "chunk %v", cc)
		}
		loaded, err := c.loader.LoadChunk(cc)
		if err != nil {
			return nil, eris.Wrapf(err, "load chunk %v", cc)
		}
		if c.chunks[cc] == nil {
			c.SetChunkAbsolute(cc, loaded)
		}
		ch = c.chunks[cc]
	}
	return ch.Get(lx, ly)
}

// PeekTile reads the tile at an absolute position. Absent chunks read as a
// Null tile and are not loaded.
func (c *Container) PeekTile(p TilePos) tile.Tile {
	cc, lx, ly := Decompose(p)
	ch := c.chunks[cc]
	if ch == nil {
		return tile.Tile{}
	}
	return ch.tiles[index(lx, ly)]
}

// LocalToTile maps a local-space position in world units to the absolute
// tile that contains it.
func (c *Container) LocalToTile(pos mgl32.Vec2) TilePos {
	r := float64(c.geom.TileResolution)
	tx := int64(math.Floor(float64(pos.X()) / r))
	ty := int64(math.Floor(float64(pos.Y()) / r))
	return TilePos{X: tx + c.offset.X*Size, Y: ty + c.offset.Y*Size}
}
