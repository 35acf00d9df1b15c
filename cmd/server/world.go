package main

import (
	"github.com/go-gl/mathgl/mgl32"

	"tilestream.dev/internal/persistence/snapshot"
	"tilestream.dev/internal/sim/entity"
	"tilestream.dev/internal/sim/tuning"
	"tilestream.dev/internal/sim/world"
	"tilestream.dev/internal/sim/world/terrain/gen"
)

// buildWorld creates a fresh world from tuning, or resumes snap. A
// snapshot's generator identity and window take precedence over tuning.
func buildWorld(tune tuning.Tuning, snap *snapshot.SnapshotV1, opts ...world.Option) (*world.World, error) {
	cfg := world.Config{
		ID:                 tune.WorldID,
		TickRateHz:         tune.TickRateHz,
		Seed:               tune.Seed,
		Generator:          tune.Generator.Kind,
		SurfaceY:           tune.Generator.SurfaceY,
		TileResolution:     tune.TileResolution,
		AtlasCols:          tune.Atlas.Cols,
		AtlasRows:          tune.Atlas.Rows,
		LoadRadius:         tune.LoadRadius,
		EvictRadius:        tune.EvictRadius,
		RenderRadius:       tune.RenderRadius,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
	}
	if snap != nil {
		cfg.Seed = snap.Seed
		cfg.Generator = snap.Generator
		cfg.SurfaceY = snap.SurfaceY
		cfg.TileResolution = snap.TileResolution
		cfg.LoadRadius = snap.LoadRadius
		cfg.EvictRadius = snap.EvictRadius
	}

	g, err := gen.New(cfg.Generator, gen.Params{
		Seed:            cfg.Seed,
		SurfaceY:        cfg.SurfaceY,
		Amplitude:       tune.Generator.Amplitude,
		Wavelength:      tune.Generator.Wavelength,
		BiomeRegionSize: tune.Generator.BiomeRegionSize,
	})
	if err != nil {
		return nil, err
	}
	w, err := world.New(cfg, g, opts...)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		if err := w.ImportSnapshot(*snap); err != nil {
			return nil, err
		}
		return w, nil
	}

	me := tune.MainEntity
	bodyOpts := []entity.Option{entity.WithVelocity(mgl32.Vec2{me.Velocity[0], me.Velocity[1]})}
	if me.Solid {
		bodyOpts = append(bodyOpts, entity.Solid())
	}
	w.SetMain(entity.NewBody(mgl32.Vec2{me.Spawn[0], me.Spawn[1]}, bodyOpts...))
	return w, nil
}
