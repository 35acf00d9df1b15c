package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tilestream.dev/internal/sim/world"
	"tilestream.dev/internal/transport/observer"
)

func newMux(w *world.World, obsSrv *observer.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w.ID(), w.Metrics(), obsSrv.Sessions())
	})

	// Local-only admin endpoints.
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !observer.IsLoopback(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			WorldID string             `json:"world_id"`
			Tick    uint64             `json:"tick"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{
			WorldID: w.ID(),
			Tick:    w.CurrentTick(),
			Metrics: w.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !observer.IsLoopback(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		tick, err := w.RequestSnapshot(ctx2)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, world.ErrNoSnapshotSink) {
				status = http.StatusNotImplemented
			}
			rw.WriteHeader(status)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
	})
	mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	return mux
}

// writeMetrics emits the minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, worldID string, m world.WorldMetrics, observers int64) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP tilestream_%s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE tilestream_%s gauge\n", name)
		fmt.Fprintf(rw, "tilestream_%s{world=%q} %v\n", name, worldID, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(rw, "# HELP tilestream_%s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE tilestream_%s counter\n", name)
		fmt.Fprintf(rw, "tilestream_%s{world=%q} %d\n", name, worldID, v)
	}

	gauge("world_tick", "Last completed world tick.", m.Tick)
	gauge("resident_chunks", "Chunks currently resident.", m.ResidentChunks)
	gauge("entities", "Entities registered with the world.", m.Entities)
	fmt.Fprintf(rw, "# HELP tilestream_origin_offset Floating origin offset in chunks.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_origin_offset gauge\n")
	fmt.Fprintf(rw, "tilestream_origin_offset{world=%q,axis=\"x\"} %d\n", worldID, m.Offset[0])
	fmt.Fprintf(rw, "tilestream_origin_offset{world=%q,axis=\"y\"} %d\n", worldID, m.Offset[1])
	gauge("chunks_rebuilt_last_tick", "Chunk meshes rebuilt in the last tick.", m.RebuiltLastTick)
	counter("chunks_loaded_total", "Chunks made resident.", m.LoadedTotal)
	counter("chunks_evicted_total", "Chunks evicted.", m.EvictedTotal)
	counter("chunks_saved_total", "Modified chunks handed to persistence.", m.SavedTotal)
	counter("rebases_total", "Floating origin shifts.", m.RebasesTotal)
	gauge("evict_cache_entries", "Modified chunks held in the eviction cache.", m.EvictCacheEntries)
	gauge("evict_cache_hit_rate", "Eviction cache hit rate.", fmt.Sprintf("%.6f", m.EvictCacheHitRate))
	gauge("step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))
	gauge("observers", "Connected observer sessions.", observers)
}
