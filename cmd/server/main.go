package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"tilestream.dev/internal/logging"
	"tilestream.dev/internal/persistence/chunkdb"
	persistlog "tilestream.dev/internal/persistence/log"
	"tilestream.dev/internal/persistence/snapshot"
	"tilestream.dev/internal/sim/tuning"
	"tilestream.dev/internal/sim/world"
	"tilestream.dev/internal/transport/observer"
)

func main() {
	var (
		addr       = pflag.String("addr", ":8080", "http listen address")
		dataDir    = pflag.String("data", "./data", "runtime data directory")
		tuningPath = pflag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		logLevel   = pflag.String("log-level", "info", "log level (debug, info, warn, error)")
		logPretty  = pflag.Bool("log-pretty", false, "human-readable console logs")

		snapPath   = pflag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = pflag.Bool("load-latest-snapshot", true, "load latest snapshot from data dir if present (when --snapshot is empty)")
		disableDB  = pflag.Bool("disable-db", false, "keep evicted edits in memory only")
		noTickLog  = pflag.Bool("disable-tick-log", false, "do not write the per-tick log")
	)
	pflag.Parse()

	logger, err := logging.New(*logLevel, *logPretty)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(logger, runConfig{
		Addr:       *addr,
		DataDir:    *dataDir,
		TuningPath: *tuningPath,
		Snapshot:   strings.TrimSpace(*snapPath),
		LoadLatest: *loadLatest,
		DisableDB:  *disableDB,
		NoTickLog:  *noTickLog,
	}); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

type runConfig struct {
	Addr       string
	DataDir    string
	TuningPath string
	Snapshot   string
	LoadLatest bool
	DisableDB  bool
	NoTickLog  bool
}

func run(logger zerolog.Logger, rc runConfig) error {
	tune, err := tuning.Load(rc.TuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		logger.Warn().Str("path", rc.TuningPath).Msg("tuning not found; using defaults")
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(rc.DataDir, "worlds", tune.WorldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		return err
	}

	snapshotToLoad := rc.Snapshot
	if snapshotToLoad == "" && rc.LoadLatest {
		snapshotToLoad = snapshot.Latest(worldDir)
	}
	var snap *snapshot.SnapshotV1
	if snapshotToLoad != "" {
		s, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			return err
		}
		if s.Header.WorldID != "" && s.Header.WorldID != tune.WorldID {
			return eris.Errorf("snapshot world id mismatch: tuning=%s snap=%s", tune.WorldID, s.Header.WorldID)
		}
		snap = &s
	}

	opts := []world.Option{world.WithLogger(logger), world.WithEvictCache(tune.EvictCacheMB << 20)}

	if !rc.DisableDB && tune.ChunkDB.Enabled {
		path := tune.ChunkDB.Path
		if path == "" {
			path = filepath.Join(worldDir, "chunks.sqlite")
		}
		db, err := chunkdb.OpenSQLite(path, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error().Err(err).Msg("close chunk db")
			}
		}()
		opts = append(opts, world.WithPersistence(db))
	}

	if !rc.NoTickLog {
		tickLog := persistlog.NewTickLogger(worldDir)
		defer tickLog.Close()
		opts = append(opts, world.WithTickLogger(tickLog))
	}

	snapCh := make(chan snapshot.SnapshotV1, 2)
	opts = append(opts, world.WithSnapshotSink(snapCh))

	w, err := buildWorld(tune, snap, opts...)
	if err != nil {
		return err
	}
	if snap != nil {
		logger.Info().Str("snapshot", filepath.Base(snapshotToLoad)).Uint64("tick", w.CurrentTick()).Msg("resumed")
	}

	obsSrv := observer.NewServer(w, tune.Observer.FrameHz, logger)
	srv := &http.Server{
		Addr:              rc.Addr,
		Handler:           newMux(w, obsSrv),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return w.Run(ctx) })

	// Snapshot writer.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case s := <-snapCh:
				path := snapshot.Path(worldDir, s.Header.Tick)
				if err := snapshot.WriteSnapshot(path, s); err != nil {
					logger.Error().Err(err).Str("path", path).Msg("snapshot write")
					continue
				}
				logger.Info().Str("path", path).Int("chunks", len(s.Chunks)).Msg("snapshot written")
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})

	g.Go(func() error {
		logger.Info().Str("addr", rc.Addr).Str("world", tune.WorldID).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	return g.Wait()
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
