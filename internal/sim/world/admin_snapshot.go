package world

import (
	"context"

	"github.com/rotisserie/eris"
)

var (
	ErrNoSnapshotSink       = eris.New("snapshot sink not configured")
	ErrSnapshotBackpressure = eris.New("snapshot sink full")
)

// snapshotRequest is answered by the loop goroutine after the next tick.
type snapshotRequest struct {
	reply chan snapshotResult
}

type snapshotResult struct {
	tick uint64
	err  error
}

// RequestSnapshot asks the world loop to export a snapshot after the
// current tick and returns that tick. Safe from any goroutine; it needs Run.
func (w *World) RequestSnapshot(ctx context.Context) (uint64, error) {
	if w == nil || w.snapshotReqs == nil {
		return 0, eris.New("world loop not available")
	}
	req := snapshotRequest{reply: make(chan snapshotResult, 1)}
	select {
	case w.snapshotReqs <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.tick, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// serveSnapshotRequests exports one snapshot of the last completed tick and
// answers every queued request with it.
func (w *World) serveSnapshotRequests(reqs []snapshotRequest) {
	if len(reqs) == 0 {
		return
	}
	var last uint64
	if cur := w.tick.Load(); cur > 0 {
		last = cur - 1
	}
	res := snapshotResult{tick: last, err: w.emitSnapshot(last)}
	for _, r := range reqs {
		select {
		case r.reply <- res:
		default:
		}
	}
}

func (w *World) emitSnapshot(tick uint64) error {
	if w.snapshotSink == nil {
		return ErrNoSnapshotSink
	}
	snap, err := w.ExportSnapshot(tick)
	if err != nil {
		w.log.Error().Err(err).Uint64("tick", tick).Msg("export snapshot")
		return err
	}
	select {
	case w.snapshotSink <- snap:
		return nil
	default:
		w.log.Warn().Uint64("tick", tick).Msg("snapshot dropped")
		return ErrSnapshotBackpressure
	}
}
