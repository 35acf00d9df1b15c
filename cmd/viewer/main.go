package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"tilestream.dev/internal/logging"
	"tilestream.dev/internal/observerproto"
	"tilestream.dev/internal/transport/observer"
)

func main() {
	var (
		url       = pflag.String("url", "ws://127.0.0.1:8080/admin/v1/observer/ws", "observer ws url")
		radius    = pflag.Int("radius", 3, "chunk radius around the main entity")
		maxChunks = pflag.Int("max-chunks", 0, "chunk budget (0 = server default)")
		every     = pflag.Duration("report", 2*time.Second, "stats report interval")
		logLevel  = pflag.String("log-level", "info", "log level")
	)
	pflag.Parse()

	logger, err := logging.New(*logLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger = logger.With().Str("component", "viewer").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	c, err := observer.Dial(ctx, *url, *radius, *maxChunks)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}
	defer c.Close()

	var geoms, evicts int
	last := time.Now()
	for {
		typ, err := c.Next()
		if err != nil {
			logger.Info().Err(err).Msg("stream closed")
			return
		}
		switch typ {
		case observerproto.TypeChunkGeometry:
			geoms++
		case observerproto.TypeChunkEvict:
			evicts++
		case observerproto.TypeFrame:
			if time.Since(last) < *every {
				continue
			}
			last = time.Now()
			f, frames := c.Frame()
			chunks, tris := c.Meshes()
			ev := logger.Info().
				Uint64("tick", f.Tick).
				Ints64("offset", f.Offset[:]).
				Uint64("frames", frames).
				Int("chunks", chunks).
				Int("triangles", tris).
				Int("geometry_msgs", geoms).
				Int("evict_msgs", evicts)
			for _, e := range f.Entities {
				if e.Main {
					ev = ev.Floats64("main_world", e.World[:])
				}
			}
			ev.Msg("view")
		}
	}
}
