package store

import (
	"sync"
	"time"
	"weak"

	"github.com/rotisserie/eris"

	"tilestream.dev/internal/sim/world/terrain/tile"
)

// Chunk is a Size x Size grid of tiles plus a lazily rebuilt geometry cache.
//
// Tile contents and the dirty flag belong to the simulation goroutine. The
// geometry buffers are shared with render consumers and are only touched
// under mu.
type Chunk struct {
	coord Coord
	tiles [Size * Size]tile.Tile

	dirty    bool
	modified bool

	// owner is used for neighbor context while building; it never keeps the
	// container alive.
	owner weak.Pointer[Container]

	mu        sync.Mutex
	vertices  []Vertex
	indices   []uint32
	revision  uint64
	published uint64
	released  bool
}

// New returns an empty chunk at absolute coordinate c. It starts dirty so
// the first update builds its geometry.
func New(c Coord) *Chunk {
	return &Chunk{coord: c, dirty: true}
}

// Coord is the absolute chunk coordinate.
func (c *Chunk) Coord() Coord { return c.coord }

func (c *Chunk) Dirty() bool { return c.dirty }

// Modified reports whether gameplay touched the chunk since it was generated
// or loaded. Eviction keeps modified chunks.
func (c *Chunk) Modified() bool { return c.modified }

func (c *Chunk) ClearModified() { c.modified = false }

// MarkModified flags content that only lives in memory, such as a chunk
// restored from a lossy cache.
func (c *Chunk) MarkModified() { c.modified = true }

// Get returns a mutable reference to the tile at (lx, ly). Any mutable
// access is treated as a write and invalidates the geometry.
func (c *Chunk) Get(lx, ly int) (*tile.Tile, error) {
	if !inChunk(lx, ly) {
		return nil, eris.Wrapf(ErrOutOfRange, "local (%d,%d) in chunk %v", lx, ly, c.coord)
	}
	c.dirty = true
	c.modified = true
	if ly == 0 {
		c.touchBelow()
	}
	return &c.tiles[index(lx, ly)], nil
}

// Peek returns a copy of the tile at (lx, ly) without invalidating anything.
func (c *Chunk) Peek(lx, ly int) (tile.Tile, error) {
	if !inChunk(lx, ly) {
		return tile.Tile{}, eris.Wrapf(ErrOutOfRange, "local (%d,%d) in chunk %v", lx, ly, c.coord)
	}
	return c.tiles[index(lx, ly)], nil
}

func (c *Chunk) Set(lx, ly int, t tile.Tile) error {
	p, err := c.Get(lx, ly)
	if err != nil {
		return err
	}
	*p = t
	return nil
}

// Fill overwrites every tile with a fresh tile of type ty.
func (c *Chunk) Fill(ty tile.Type) {
	for i := range c.tiles {
		c.tiles[i] = tile.Tile{Type: ty}
	}
	c.dirty = true
	c.modified = true
	c.touchBelow()
}

// Update runs the per-tile hook on every cell and rebuilds the geometry if
// the chunk is dirty.
func (c *Chunk) Update(now, dt time.Duration) {
	for i := range c.tiles {
		c.tiles[i].Update(now, dt)
	}
	if c.dirty {
		c.Build()
		c.dirty = false
	}
}

// Release frees the geometry. Consumers holding the chunk see
// PublishGeometry fail from then on.
func (c *Chunk) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	c.vertices = nil
	c.indices = nil
}

func (c *Chunk) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func (c *Chunk) container() *Container {
	return c.owner.Value()
}

// touchBelow marks the neighbor that draws against this chunk's bottom row.
// Chunks no longer registered in their container are ignored.
func (c *Chunk) touchBelow() {
	if o := c.container(); o != nil && o.chunks[c.coord] == c {
		o.touchBelow(c.coord)
	}
}
