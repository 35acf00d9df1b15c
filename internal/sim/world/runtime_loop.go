package world

import (
	"context"
	"time"
)

// Run steps the world at TickRateHz until ctx ends or Stop is called.
// Snapshot requests are served between ticks. Modified chunks are flushed
// to persistence on the way out.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer w.Flush()

	w.log.Info().Str("world", w.cfg.ID).Int("tick_hz", w.cfg.TickRateHz).
		Int("load_r", w.cfg.LoadRadius).Int("evict_r", w.cfg.EvictRadius).Msg("world loop started")

	var pending []snapshotRequest
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.snapshotReqs:
			pending = append(pending, req)
		case <-ticker.C:
			if err := w.Step(interval); err != nil {
				w.log.Error().Err(err).Msg("step failed")
				return err
			}
			w.serveSnapshotRequests(pending)
			pending = pending[:0]
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }
