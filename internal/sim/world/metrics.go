package world

// WorldMetrics is a thread-safe read-only view of the streaming state.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	ResidentChunks int      `json:"resident_chunks"`
	Entities       int      `json:"entities"`
	Offset         [2]int64 `json:"offset"`

	LoadedLastTick  int `json:"loaded_last_tick"`
	EvictedLastTick int `json:"evicted_last_tick"`
	RebuiltLastTick int `json:"rebuilt_last_tick"`

	LoadedTotal  uint64 `json:"loaded_total"`
	EvictedTotal uint64 `json:"evicted_total"`
	RebasesTotal uint64 `json:"rebases_total"`
	SavedTotal   uint64 `json:"saved_total"`

	EvictCacheEntries int64   `json:"evict_cache_entries"`
	EvictCacheHitRate float64 `json:"evict_cache_hit_rate"`

	StepMS float64 `json:"step_ms"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(tick uint64, stepMS float64) {
	off := w.c.Offset()
	m := WorldMetrics{
		Tick:            tick,
		ResidentChunks:  w.c.Len(),
		Entities:        len(w.c.Entities()),
		Offset:          [2]int64{off.X, off.Y},
		LoadedLastTick:  w.stats.loaded,
		EvictedLastTick: w.stats.evicted,
		RebuiltLastTick: w.stats.rebuilt,
		LoadedTotal:     w.totals.loaded,
		EvictedTotal:    w.totals.evicted,
		RebasesTotal:    w.totals.rebases,
		SavedTotal:      w.totals.saved,
		StepMS:          stepMS,
	}
	if w.evictCache != nil {
		m.EvictCacheEntries = w.evictCache.EntryCount()
		m.EvictCacheHitRate = w.evictCache.HitRate()
	}
	w.metrics.Store(m)
}

func (w *World) writeTickLog(tick uint64, stepMS float64) {
	if w.tickLog == nil {
		return
	}
	off := w.c.Offset()
	e := TickLogEntry{
		Tick:      tick,
		Offset:    [2]int64{off.X, off.Y},
		Loaded:    w.stats.loaded,
		Evicted:   w.stats.evicted,
		Rebuilt:   w.stats.rebuilt,
		Destroyed: w.stats.destroyed,
		Resident:  w.c.Len(),
		StepMS:    stepMS,
	}
	if d := w.stats.rebase; d.X != 0 || d.Y != 0 {
		e.Rebase = [2]int64{d.X, d.Y}
	}
	if err := w.tickLog.WriteTick(e); err != nil {
		w.log.Warn().Err(err).Uint64("tick", tick).Msg("tick log")
	}
}
