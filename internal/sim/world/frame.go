package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"tilestream.dev/internal/sim/world/logic/mathx"
	"tilestream.dev/internal/sim/world/terrain/store"
)

// RenderFrame is a point-in-time copy of what a renderer needs. It is
// safe to read from any goroutine; chunk geometry must still be read
// through Chunk.PublishGeometry, which fails for chunks evicted since.
type RenderFrame struct {
	Tick     uint64
	Offset   store.Coord
	Chunks   []FrameChunk
	Entities []FrameEntity
}

type FrameChunk struct {
	Abs   store.Coord
	Local store.Coord
	Chunk *store.Chunk
}

type FrameEntity struct {
	ID    string
	Main  bool
	Pos   mgl32.Vec2
	World [2]float64
}

// Frame returns the frame published by the last completed tick.
func (w *World) Frame() *RenderFrame {
	if w == nil {
		return &RenderFrame{}
	}
	return w.frame.Load()
}

func (w *World) publishFrame(tick uint64) {
	r := int64(w.cfg.RenderRadius)
	f := &RenderFrame{Tick: tick, Offset: w.c.Offset()}
	for _, abs := range w.c.Keys() {
		local := w.c.ToLocal(abs)
		if mathx.Chebyshev(local.X, local.Y) > r {
			continue
		}
		f.Chunks = append(f.Chunks, FrameChunk{Abs: abs, Local: local, Chunk: w.c.ChunkAtAbsolute(abs)})
	}
	for _, e := range w.c.Entities() {
		f.Entities = append(f.Entities, FrameEntity{
			ID:    e.ID(),
			Main:  e == w.main,
			Pos:   e.LocalPosition(),
			World: w.c.WorldPosition(e),
		})
	}
	w.frame.Store(f)
}
