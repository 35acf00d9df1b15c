package store

import (
	"sort"
	"time"
	"weak"

	"github.com/go-gl/mathgl/mgl32"
)

// Entity is anything positioned in local space that the container must keep
// consistent across rebasing.
type Entity interface {
	ID() string
	LocalPosition() mgl32.Vec2
	SetLocalPosition(mgl32.Vec2)
	// Shift moves the local position by delta world units.
	Shift(delta mgl32.Vec2)
	Update(now, dt time.Duration, c *Container) error
}

// Loader pages a chunk in on demand. It registers the chunk with the
// container it serves.
type Loader interface {
	LoadChunk(abs Coord) (*Chunk, error)
}

// Container is the sparse set of resident chunks. Keys are absolute chunk
// coordinates; local coordinates are absolute minus offset.
//
// A Container belongs to the simulation goroutine. Render consumers must work
// from a copy of its enumeration.
type Container struct {
	chunks   map[Coord]*Chunk
	offset   Coord
	entities []Entity

	geom   GeometryOptions
	loader Loader
}

func NewContainer(geom GeometryOptions) *Container {
	return &Container{
		chunks: map[Coord]*Chunk{},
		geom:   geom.normalized(),
	}
}

func (c *Container) SetLoader(l Loader) { c.loader = l }

func (c *Container) Geometry() GeometryOptions { return c.geom }

func (c *Container) Offset() Coord { return c.offset }

func (c *Container) ToLocal(abs Coord) Coord      { return abs.Sub(c.offset) }
func (c *Container) ToAbsolute(local Coord) Coord { return local.Add(c.offset) }

// ChunkSpan is the width of one chunk in world units.
func (c *Container) ChunkSpan() float32 {
	return float32(Size) * c.geom.TileResolution
}

func (c *Container) Len() int { return len(c.chunks) }

func (c *Container) ChunkAt(local Coord) *Chunk {
	return c.chunks[c.ToAbsolute(local)]
}

func (c *Container) ChunkAtAbsolute(abs Coord) *Chunk {
	return c.chunks[abs]
}

func (c *Container) SetChunk(local Coord, ch *Chunk) {
	c.SetChunkAbsolute(c.ToAbsolute(local), ch)
}

// SetChunkAbsolute registers ch at abs, replacing and releasing any other
// chunk stored there.
func (c *Container) SetChunkAbsolute(abs Coord, ch *Chunk) {
	if prev := c.chunks[abs]; prev != nil && prev != ch {
		prev.Release()
	}
	ch.coord = abs
	ch.owner = weak.Make(c)
	c.chunks[abs] = ch
	c.touchBelow(abs)
}

func (c *Container) EraseChunk(local Coord) *Chunk {
	return c.EraseChunkAbsolute(c.ToAbsolute(local))
}

// EraseChunkAbsolute removes the chunk at abs and frees its geometry. The
// removed chunk is returned so its tiles can still be saved.
func (c *Container) EraseChunkAbsolute(abs Coord) *Chunk {
	ch := c.chunks[abs]
	if ch == nil {
		return nil
	}
	delete(c.chunks, abs)
	ch.Release()
	c.touchBelow(abs)
	return ch
}

// touchBelow invalidates the resident chunk whose top edge reads the bottom
// row of the chunk at abs.
func (c *Container) touchBelow(abs Coord) {
	if ch := c.chunks[abs.Add(Coord{Y: -1})]; ch != nil {
		ch.dirty = true
	}
}

// Keys returns absolute keys of resident chunks in a stable order.
func (c *Container) Keys() []Coord {
	keys := make([]Coord, 0, len(c.chunks))
	for k := range c.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}

// Shift moves the floating origin by delta chunks: the offset becomes
// offset+delta, so a chunk's local key (absolute minus offset) and every
// entity local position move by -delta. World positions do not change.
func (c *Container) Shift(delta Coord) {
	if delta == (Coord{}) {
		return
	}
	c.offset = c.offset.Add(delta)
	span := c.ChunkSpan()
	d := mgl32.Vec2{-float32(delta.X) * span, -float32(delta.Y) * span}
	for _, e := range c.entities {
		e.Shift(d)
	}
}

func (c *Container) AddEntity(e Entity) {
	for _, x := range c.entities {
		if x == e {
			return
		}
	}
	c.entities = append(c.entities, e)
}

func (c *Container) RemoveEntity(id string) bool {
	for i, e := range c.entities {
		if e.ID() == id {
			c.entities = append(c.entities[:i], c.entities[i+1:]...)
			return true
		}
	}
	return false
}

// Entities returns a copy of the entity list.
func (c *Container) Entities() []Entity {
	out := make([]Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// WorldPosition is an entity's position relative to the absolute origin,
// in float64 so it stays exact far from the origin.
func (c *Container) WorldPosition(e Entity) [2]float64 {
	p := e.LocalPosition()
	span := float64(c.ChunkSpan())
	return [2]float64{
		float64(p.X()) + float64(c.offset.X)*span,
		float64(p.Y()) + float64(c.offset.Y)*span,
	}
}
