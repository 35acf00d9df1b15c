package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/pflag"

	"tilestream.dev/internal/logging"
	persistlog "tilestream.dev/internal/persistence/log"
	"tilestream.dev/internal/persistence/snapshot"
	"tilestream.dev/internal/sim/tuning"
	"tilestream.dev/internal/sim/world"
	"tilestream.dev/internal/sim/world/terrain/gen"
)

func main() {
	var (
		snapPath   = pflag.String("snapshot", "", "path to .snap.zst")
		worldDir   = pflag.String("world-dir", "", "world directory containing ticks/ (optional)")
		tuningPath = pflag.String("tuning", "./configs/tuning.yaml", "tuning used by the recording server")
		toTick     = pflag.Uint64("to-tick", 0, "stop at tick (inclusive, optional)")
	)
	pflag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing --snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	modified := 0
	for _, c := range snap.Chunks {
		if c.Modified {
			modified++
		}
	}
	fmt.Printf("snapshot v%d world=%s tick=%d seed=%d generator=%s offset=%v chunks=%d modified=%d entities=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.Generator,
		snap.Offset, len(snap.Chunks), modified, len(snap.Entities))

	if *worldDir == "" {
		return
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	logger, _ := logging.New("warn", true)

	files, err := persistlog.TickFiles(*worldDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list tick logs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no tick logs found in", *worldDir)
		os.Exit(1)
	}
	var entries []world.TickLogEntry
	for _, path := range files {
		es, err := persistlog.ReadTicks(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read tick log:", err)
			os.Exit(1)
		}
		entries = append(entries, es...)
	}

	rec := &recorder{}
	w, err := resume(snap, tune, world.WithLogger(logger), world.WithTickLogger(rec))
	if err != nil {
		fmt.Fprintln(os.Stderr, "resume:", err)
		os.Exit(1)
	}
	checked, err := replay(w, rec, entries, snap.Header.Tick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks (from snapshot tick=%d)\n", checked, snap.Header.Tick)
}

// resume rebuilds the world a snapshot was taken from. Generator shape
// parameters are not part of the snapshot and come from tuning.
func resume(snap snapshot.SnapshotV1, tune tuning.Tuning, opts ...world.Option) (*world.World, error) {
	g, err := gen.New(snap.Generator, gen.Params{
		Seed:            snap.Seed,
		SurfaceY:        snap.SurfaceY,
		Amplitude:       tune.Generator.Amplitude,
		Wavelength:      tune.Generator.Wavelength,
		BiomeRegionSize: tune.Generator.BiomeRegionSize,
	})
	if err != nil {
		return nil, err
	}
	w, err := world.New(world.Config{
		ID:             snap.Header.WorldID,
		TickRateHz:     tune.TickRateHz,
		Seed:           snap.Seed,
		Generator:      snap.Generator,
		SurfaceY:       snap.SurfaceY,
		TileResolution: snap.TileResolution,
		LoadRadius:     snap.LoadRadius,
		EvictRadius:    snap.EvictRadius,
		RenderRadius:   tune.RenderRadius,
	}, g, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, err
	}
	return w, nil
}

type recorder struct {
	last world.TickLogEntry
}

func (r *recorder) WriteTick(e world.TickLogEntry) error {
	r.last = e
	return nil
}

// replay steps w once per logged tick after fromTick and compares the
// streaming outcome. Tile edits are not in the log, so only the window
// bookkeeping is checked.
func replay(w *world.World, rec *recorder, entries []world.TickLogEntry, fromTick, toTick uint64) (int, error) {
	dt := time.Second / time.Duration(w.TickRateHz())
	checked := 0
	for _, want := range entries {
		if want.Tick <= fromTick {
			continue
		}
		if toTick != 0 && want.Tick > toTick {
			break
		}
		if want.Tick != w.CurrentTick() {
			return checked, eris.Errorf("tick gap: want=%d got=%d", w.CurrentTick(), want.Tick)
		}
		if err := w.Step(dt); err != nil {
			return checked, err
		}
		got := rec.last
		if got.Offset != want.Offset || got.Rebase != want.Rebase {
			return checked, eris.Errorf("offset mismatch at tick %d: got=%v want=%v", want.Tick, got.Offset, want.Offset)
		}
		if got.Loaded != want.Loaded || got.Evicted != want.Evicted || got.Resident != want.Resident {
			return checked, eris.Errorf("window mismatch at tick %d: got=%d/%d/%d want=%d/%d/%d", want.Tick,
				got.Loaded, got.Evicted, got.Resident, want.Loaded, want.Evicted, want.Resident)
		}
		checked++
	}
	return checked, nil
}
