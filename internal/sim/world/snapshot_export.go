package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"tilestream.dev/internal/persistence/snapshot"
	"tilestream.dev/internal/sim/world/terrain/store"
)

type velocityer interface {
	Velocity() mgl32.Vec2
}

type solider interface {
	IsSolid() bool
}

// ExportSnapshot must be called from the world loop goroutine.
func (w *World) ExportSnapshot(nowTick uint64) (snapshot.SnapshotV1, error) {
	chunks, err := store.ExportChunks(w.c)
	if err != nil {
		return snapshot.SnapshotV1{}, err
	}
	ents := w.c.Entities()
	entSnaps := make([]snapshot.EntityV1, 0, len(ents))
	for _, e := range ents {
		p := e.LocalPosition()
		es := snapshot.EntityV1{ID: e.ID(), Main: e == w.main, Pos: [2]float32{p.X(), p.Y()}}
		if v, ok := e.(velocityer); ok {
			vel := v.Velocity()
			es.Vel = [2]float32{vel.X(), vel.Y()}
		}
		if s, ok := e.(solider); ok {
			es.Solid = s.IsSolid()
		}
		entSnaps = append(entSnaps, es)
	}
	off := w.c.Offset()
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:           w.cfg.Seed,
		Generator:      w.cfg.Generator,
		SurfaceY:       w.cfg.SurfaceY,
		TileResolution: w.cfg.TileResolution,
		LoadRadius:     w.cfg.LoadRadius,
		EvictRadius:    w.cfg.EvictRadius,
		Offset:         [2]int64{off.X, off.Y},
		Chunks:         chunks,
		Entities:       entSnaps,
	}, nil
}
