package world

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/coocood/freecache"
	"github.com/rotisserie/eris"

	"tilestream.dev/internal/sim/world/logic/mathx"
	"tilestream.dev/internal/sim/world/terrain/gen"
	"tilestream.dev/internal/sim/world/terrain/store"
	"tilestream.dev/internal/sim/world/terrain/tile"
)

// Step advances the world by dt: rebase, entities, evict then load, chunk
// updates. Errors from entities or loading abort the tick. Tile edits made
// between steps are counted in the next tick's stats.
func (w *World) Step(dt time.Duration) error {
	start := time.Now()
	nowTick := w.tick.Load()
	w.now += dt

	if delta := w.rebaseDelta(); delta != (store.Coord{}) {
		w.c.Shift(delta)
		w.stats.rebase = delta
		w.totals.rebases++
		w.log.Info().Uint64("tick", nowTick).Int64("dx", delta.X).Int64("dy", delta.Y).
			Str("offset", w.c.Offset().String()).Msg("rebase")
	}

	if err := w.updateEntities(dt); err != nil {
		return eris.Wrapf(err, "tick %d", nowTick)
	}

	w.evictOutside()
	if err := w.loadWindow(); err != nil {
		return eris.Wrapf(err, "tick %d", nowTick)
	}

	w.updateChunks(dt)

	w.tick.Store(nowTick + 1)
	w.publishFrame(nowTick)
	stepMS := float64(time.Since(start).Microseconds()) / 1000.0
	w.publishMetrics(nowTick, stepMS)
	w.writeTickLog(nowTick, stepMS)
	w.stats = tickStats{}

	if n := w.cfg.SnapshotEveryTicks; n > 0 && nowTick > 0 && nowTick%uint64(n) == 0 {
		if err := w.emitSnapshot(nowTick); err != nil {
			w.log.Warn().Err(err).Uint64("tick", nowTick).Msg("periodic snapshot")
		}
	}
	return nil
}

// rebaseDelta is the chunk shift that brings the main entity back inside
// [0, span] on each axis.
func (w *World) rebaseDelta() store.Coord {
	if w.main == nil {
		return store.Coord{}
	}
	p := w.main.LocalPosition()
	span := w.c.ChunkSpan()
	return store.Coord{X: axisShift(p.X(), span), Y: axisShift(p.Y(), span)}
}

func axisShift(v, span float32) int64 {
	if v >= 0 && v <= span {
		return 0
	}
	return int64(math.Floor(float64(v) / float64(span)))
}

func (w *World) updateEntities(dt time.Duration) error {
	if w.main != nil {
		if err := w.main.Update(w.now, dt, w.c); err != nil {
			return eris.Wrapf(err, "entity %s", w.main.ID())
		}
	}
	for _, e := range w.c.Entities() {
		if e == w.main {
			continue
		}
		if err := e.Update(w.now, dt, w.c); err != nil {
			return eris.Wrapf(err, "entity %s", e.ID())
		}
	}
	return nil
}

func (w *World) evictOutside() {
	r := int64(w.cfg.EvictRadius)
	for _, abs := range w.c.Keys() {
		local := w.c.ToLocal(abs)
		if mathx.Chebyshev(local.X, local.Y) > r {
			w.evict(abs)
		}
	}
}

func (w *World) evict(abs store.Coord) {
	ch := w.c.ChunkAtAbsolute(abs)
	if ch == nil {
		return
	}
	if ch.Modified() {
		w.stash(ch)
	}
	w.c.EraseChunkAbsolute(abs)
	w.stats.evicted++
	w.totals.evicted++
}

// stash keeps a modified chunk's tiles past eviction.
func (w *World) stash(ch *store.Chunk) {
	abs := ch.Coord()
	if w.evictCache != nil {
		blob, err := store.EncodeTiles(ch)
		if err == nil {
			err = w.evictCache.Set(cacheKey(abs), blob, 0)
		}
		if err != nil {
			w.log.Warn().Err(err).Str("chunk", abs.String()).Msg("evict cache set")
		}
	}
	if w.persist != nil {
		if err := w.persist.SaveChunk(ch); err != nil {
			w.log.Error().Err(err).Str("chunk", abs.String()).Msg("persist chunk")
			return
		}
		w.totals.saved++
	}
}

func (w *World) loadWindow() error {
	r := int64(w.cfg.LoadRadius)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			abs := w.c.ToAbsolute(store.Coord{X: dx, Y: dy})
			if w.c.ChunkAtAbsolute(abs) != nil {
				continue
			}
			if _, err := w.LoadChunk(abs); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadChunk makes the chunk at abs resident and returns it. Sources are
// tried in order: resident set, eviction cache, persistence, generator.
func (w *World) LoadChunk(abs store.Coord) (*store.Chunk, error) {
	if ch := w.c.ChunkAtAbsolute(abs); ch != nil {
		return ch, nil
	}
	ch, src, err := w.fetch(abs)
	if err != nil {
		return nil, err
	}
	w.c.SetChunkAbsolute(abs, ch)
	w.stats.loaded++
	w.totals.loaded++
	w.log.Debug().Str("chunk", abs.String()).Str("source", src).Msg("load")
	return ch, nil
}

func (w *World) fetch(abs store.Coord) (*store.Chunk, string, error) {
	if w.evictCache != nil {
		key := cacheKey(abs)
		blob, err := w.evictCache.Get(key)
		switch {
		case err == nil:
			ch, derr := store.DecodeTiles(abs, blob)
			if derr == nil {
				w.evictCache.Del(key)
				ch.MarkModified()
				return ch, "cache", nil
			}
			w.log.Warn().Err(derr).Str("chunk", abs.String()).Msg("evict cache decode")
		case !errors.Is(err, freecache.ErrNotFound):
			w.log.Warn().Err(err).Str("chunk", abs.String()).Msg("evict cache get")
		}
	}
	if w.persist != nil {
		ch, ok, err := w.persist.LoadChunk(abs)
		if err != nil {
			return nil, "", eris.Wrapf(err, "persisted chunk %v", abs)
		}
		if ok {
			return ch, "persistence", nil
		}
	}
	ch, err := w.gen.Generate(abs, w.c)
	if err != nil {
		return nil, "", eris.Wrapf(err, "generate chunk %v", abs)
	}
	if ch == nil {
		return nil, "", eris.Wrapf(gen.ErrMissingGeneratorResult, "chunk %v", abs)
	}
	return ch, "generator", nil
}

func (w *World) updateChunks(dt time.Duration) {
	r := int64(w.cfg.RenderRadius)
	for _, abs := range w.c.Keys() {
		local := w.c.ToLocal(abs)
		if mathx.Chebyshev(local.X, local.Y) > r {
			continue
		}
		ch := w.c.ChunkAtAbsolute(abs)
		if ch.Dirty() {
			w.stats.rebuilt++
		}
		ch.Update(w.now, dt)
	}
}

// Flush hands every modified resident chunk to persistence. Call it from
// the simulation goroutine before shutdown.
func (w *World) Flush() {
	if w.persist == nil {
		return
	}
	for _, abs := range w.c.Keys() {
		if ch := w.c.ChunkAtAbsolute(abs); ch.Modified() {
			if err := w.persist.SaveChunk(ch); err != nil {
				w.log.Error().Err(err).Str("chunk", abs.String()).Msg("flush chunk")
				continue
			}
			ch.ClearModified()
			w.totals.saved++
		}
	}
}

// SetTile overwrites the tile at an absolute position, loading its chunk
// if needed.
func (w *World) SetTile(p store.TilePos, t tile.Tile) error {
	ref, err := w.c.TileAt(p)
	if err != nil {
		return err
	}
	*ref = t
	return nil
}

// DestroyTile clears the tile at p and returns what was there.
func (w *World) DestroyTile(p store.TilePos) (tile.Tile, error) {
	ref, err := w.c.TileAt(p)
	if err != nil {
		return tile.Tile{}, err
	}
	w.stats.destroyed++
	return ref.Destroy(), nil
}

func cacheKey(abs store.Coord) []byte {
	var k [16]byte
	binary.LittleEndian.PutUint64(k[:8], uint64(abs.X))
	binary.LittleEndian.PutUint64(k[8:], uint64(abs.Y))
	return k[:]
}
