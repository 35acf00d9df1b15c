package world

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"tilestream.dev/internal/persistence/snapshot"
	"tilestream.dev/internal/sim/entity"
	"tilestream.dev/internal/sim/world/terrain/store"
)

// ImportSnapshot restores a snapshot into a world that has not stepped yet.
// Entities come back as entity.Body values.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if err := w.validateSnapshotImport(s); err != nil {
		return err
	}
	// Move the origin before any entity is registered so positions are
	// restored exactly as saved.
	for _, e := range w.c.Entities() {
		w.c.RemoveEntity(e.ID())
	}
	w.main = nil
	w.c.Shift(store.Coord{X: s.Offset[0], Y: s.Offset[1]}.Sub(w.c.Offset()))

	if err := store.ImportChunks(w.c, s.Chunks); err != nil {
		return eris.Wrap(err, "import chunks")
	}
	for _, es := range s.Entities {
		opts := []entity.Option{entity.WithID(es.ID), entity.WithVelocity(mgl32.Vec2{es.Vel[0], es.Vel[1]})}
		if es.Solid {
			opts = append(opts, entity.Solid())
		}
		b := entity.NewBody(mgl32.Vec2{es.Pos[0], es.Pos[1]}, opts...)
		if es.Main {
			w.SetMain(b)
		} else {
			w.AddEntity(b)
		}
	}
	w.tick.Store(s.Header.Tick + 1)
	w.publishFrame(s.Header.Tick)
	w.log.Info().Uint64("tick", s.Header.Tick).Int("chunks", len(s.Chunks)).
		Int("entities", len(s.Entities)).Msg("snapshot imported")
	return nil
}

func (w *World) validateSnapshotImport(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return eris.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if w.cfg.Seed != s.Seed {
		return eris.Wrapf(ErrInvalidConfig, "snapshot seed mismatch: cfg=%d snap=%d", w.cfg.Seed, s.Seed)
	}
	if w.cfg.Generator != s.Generator {
		return eris.Wrapf(ErrInvalidConfig, "snapshot generator mismatch: cfg=%s snap=%s", w.cfg.Generator, s.Generator)
	}
	if w.cfg.SurfaceY != s.SurfaceY {
		return eris.Wrapf(ErrInvalidConfig, "snapshot surface_y mismatch: cfg=%d snap=%d", w.cfg.SurfaceY, s.SurfaceY)
	}
	if w.cfg.TileResolution != s.TileResolution {
		return eris.Wrapf(ErrInvalidConfig, "snapshot tile_resolution mismatch: cfg=%v snap=%v", w.cfg.TileResolution, s.TileResolution)
	}
	return nil
}
