package store

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"tilestream.dev/internal/sim/world/terrain/tile"
)

type Vertex struct {
	Pos mgl32.Vec2
	UV  mgl32.Vec2
}

// Geometry is the render-facing copy of a chunk mesh. Positions are in
// chunk-local world units.
type Geometry struct {
	Coord    Coord
	Revision uint64
	Vertices []Vertex
	Indices  []uint32
}

func (g Geometry) QuadCount() int { return len(g.Indices) / 6 }

type GeometryOptions struct {
	TileResolution float32
	AtlasCols      int
	AtlasRows      int
}

var DefaultGeometry = GeometryOptions{
	TileResolution: 16,
	AtlasCols:      32,
	AtlasRows:      8,
}

func (o GeometryOptions) normalized() GeometryOptions {
	if o.TileResolution <= 0 {
		o.TileResolution = DefaultGeometry.TileResolution
	}
	if o.AtlasCols <= 0 {
		o.AtlasCols = DefaultGeometry.AtlasCols
	}
	if o.AtlasRows <= 0 {
		o.AtlasRows = DefaultGeometry.AtlasRows
	}
	return o
}

// Build rebuilds the whole mesh from the current tiles: one quad per
// rendering tile.
func (c *Chunk) Build() {
	opts := DefaultGeometry
	if o := c.container(); o != nil {
		opts = o.geom
	}
	above := c.aboveRow()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.vertices = c.vertices[:0]
	c.indices = c.indices[:0]
	for ly := 0; ly < Size; ly++ {
		for lx := 0; lx < Size; lx++ {
			t := c.tiles[index(lx, ly)]
			if !t.Render() {
				continue
			}
			up := above[lx]
			if ly+1 < Size {
				up = c.tiles[index(lx, ly+1)].Type
			}
			p := Compose(c.coord, lx, ly)
			cell := t.TextureVariant(tile.Hint{X: p.X, Y: p.Y, Above: up})
			c.emitQuadLocked(lx, ly, cell, opts)
		}
	}
	c.revision++
}

func (c *Chunk) emitQuadLocked(lx, ly int, cell tile.Atlas, opts GeometryOptions) {
	r := opts.TileResolution
	x0, y0 := float32(lx)*r, float32(ly)*r
	x1, y1 := x0+r, y0+r

	du := 1 / float32(opts.AtlasCols)
	dv := 1 / float32(opts.AtlasRows)
	u0, v0 := float32(cell.Col)*du, float32(cell.Row)*dv
	u1, v1 := u0+du, v0+dv

	base := uint32(len(c.vertices))
	c.vertices = append(c.vertices,
		Vertex{Pos: mgl32.Vec2{x0, y0}, UV: mgl32.Vec2{u0, v1}},
		Vertex{Pos: mgl32.Vec2{x1, y0}, UV: mgl32.Vec2{u1, v1}},
		Vertex{Pos: mgl32.Vec2{x1, y1}, UV: mgl32.Vec2{u1, v0}},
		Vertex{Pos: mgl32.Vec2{x0, y1}, UV: mgl32.Vec2{u0, v0}},
	)
	c.indices = append(c.indices, base, base+1, base+2, base, base+2, base+3)
}

// aboveRow reads the bottom row of the chunk above, if it is resident.
func (c *Chunk) aboveRow() [Size]tile.Type {
	var row [Size]tile.Type
	o := c.container()
	if o == nil {
		return row
	}
	up := o.ChunkAtAbsolute(c.coord.Add(Coord{Y: 1}))
	if up == nil {
		return row
	}
	for lx := 0; lx < Size; lx++ {
		row[lx] = up.tiles[index(lx, 0)].Type
	}
	return row
}

// PublishGeometry copies the last built mesh for a render consumer. It
// returns false once the chunk has been released.
func (c *Chunk) PublishGeometry() (Geometry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return Geometry{}, false
	}
	c.published = c.revision
	return Geometry{
		Coord:    c.coord,
		Revision: c.revision,
		Vertices: slices.Clone(c.vertices),
		Indices:  slices.Clone(c.indices),
	}, true
}

// GeometryRevision lets a consumer skip unchanged meshes without copying.
func (c *Chunk) GeometryRevision() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision, !c.released
}

// Published reports whether the latest build has been handed out.
func (c *Chunk) Published() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published == c.revision
}
