package observer

import (
	"encoding/json"
	"sync/atomic"

	"tilestream.dev/internal/observerproto"
	"tilestream.dev/internal/sim/world"
	"tilestream.dev/internal/sim/world/logic/mathx"
	"tilestream.dev/internal/sim/world/terrain/store"
)

// session tracks which chunk meshes one observer already holds.
type session struct {
	id        string
	radius    atomic.Int64
	maxChunks atomic.Int64
	resync    atomic.Bool

	last *world.RenderFrame
	sent map[store.Coord]sentMesh
}

// sentMesh identifies the mesh an observer holds for a coordinate.
// Revisions are per chunk, so a replacement chunk can repeat one.
type sentMesh struct {
	chunk *store.Chunk
	rev   uint64
}

func newSession(id string, sub observerproto.SubscribeMsg) *session {
	s := &session{id: id, sent: map[store.Coord]sentMesh{}}
	s.update(sub)
	return s
}

func (s *session) update(sub observerproto.SubscribeMsg) {
	s.radius.Store(int64(sub.ChunkRadius))
	s.maxChunks.Store(int64(sub.MaxChunks))
	// Force a pass on the next frame so a wider radius is filled in.
	s.resync.Store(true)
}

// next returns the messages that bring the observer up to date with f:
// changed meshes, evictions, then the frame itself. An unchanged frame
// yields nothing.
func (s *session) next(f *world.RenderFrame) ([][]byte, error) {
	resync := s.resync.Swap(false)
	if f == nil || (f == s.last && !resync) {
		return nil, nil
	}
	s.last = f
	radius := s.radius.Load()
	limit := int(s.maxChunks.Load())

	var out [][]byte
	visible := make(map[store.Coord]bool, len(f.Chunks))
	for _, fc := range f.Chunks {
		if mathx.Chebyshev(fc.Local.X, fc.Local.Y) > radius || len(visible) >= limit {
			continue
		}
		rev, ok := fc.Chunk.GeometryRevision()
		if !ok {
			// Evicted after the frame was taken.
			continue
		}
		visible[fc.Abs] = true
		if rev == 0 {
			continue
		}
		if have, ok := s.sent[fc.Abs]; ok && have == (sentMesh{chunk: fc.Chunk, rev: rev}) {
			continue
		}
		g, ok := fc.Chunk.PublishGeometry()
		if !ok {
			delete(visible, fc.Abs)
			continue
		}
		b, err := json.Marshal(geometryMsg(fc, g))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		s.sent[fc.Abs] = sentMesh{chunk: fc.Chunk, rev: g.Revision}
	}

	for abs := range s.sent {
		if visible[abs] {
			continue
		}
		b, err := json.Marshal(observerproto.ChunkEvictMsg{
			Type:            observerproto.TypeChunkEvict,
			ProtocolVersion: observerproto.Version,
			Abs:             [2]int64{abs.X, abs.Y},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		delete(s.sent, abs)
	}

	b, err := json.Marshal(frameMsg(f))
	if err != nil {
		return nil, err
	}
	return append(out, b), nil
}

func geometryMsg(fc world.FrameChunk, g store.Geometry) observerproto.ChunkGeometryMsg {
	verts := make([][4]float32, len(g.Vertices))
	for i, v := range g.Vertices {
		verts[i] = [4]float32{v.Pos.X(), v.Pos.Y(), v.UV.X(), v.UV.Y()}
	}
	return observerproto.ChunkGeometryMsg{
		Type:            observerproto.TypeChunkGeometry,
		ProtocolVersion: observerproto.Version,
		Abs:             [2]int64{fc.Abs.X, fc.Abs.Y},
		Local:           [2]int64{fc.Local.X, fc.Local.Y},
		Revision:        g.Revision,
		Vertices:        verts,
		Indices:         g.Indices,
	}
}

func frameMsg(f *world.RenderFrame) observerproto.FrameMsg {
	ents := make([]observerproto.EntityState, 0, len(f.Entities))
	for _, e := range f.Entities {
		ents = append(ents, observerproto.EntityState{
			ID:    e.ID,
			Main:  e.Main,
			Pos:   [2]float32{e.Pos.X(), e.Pos.Y()},
			World: e.World,
		})
	}
	return observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		Tick:            f.Tick,
		Offset:          [2]int64{f.Offset.X, f.Offset.Y},
		Entities:        ents,
	}
}
