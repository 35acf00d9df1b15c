package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"tilestream.dev/internal/persistence/chunkdb"
	persistlog "tilestream.dev/internal/persistence/log"
	"tilestream.dev/internal/persistence/snapshot"
)

const usage = "usage: admin [list|snapshots|ticks|chunks|state|snapshot] [flags]"

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "snapshots":
			snapshotsCmd(os.Args[2:])
			return
		case "ticks":
			ticksCmd(os.Args[2:])
			return
		case "chunks":
			chunksCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		case "-h", "--help", "help":
			fmt.Println(usage)
			return
		}
	}
	listCmd(os.Args[1:])
}

func worldFlags(name string) (*pflag.FlagSet, *string, *string) {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "world_1", "world id")
	return fs, dataDir, worldID
}

func listCmd(args []string) {
	fs, dataDir, _ := worldFlags("list")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(base, e.Name())
		snaps, _ := snapshot.List(dir)
		ticks, _ := persistlog.TickFiles(dir)
		fmt.Printf("%s\tsnapshots=%d\ttick_logs=%d\n", e.Name(), len(snaps), len(ticks))
	}
}

func snapshotsCmd(args []string) {
	fs, dataDir, worldID := worldFlags("snapshots")
	_ = fs.Parse(args)

	paths, err := snapshot.List(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, p := range paths {
		h, err := snapshot.ReadHeader(p)
		if err != nil {
			fmt.Fprintln(os.Stderr, filepath.Base(p)+":", err)
			continue
		}
		printJSON(struct {
			snapshot.Header
			Path string `json:"path"`
		}{h, p})
	}
}

// tickSummary aggregates a world's tick logs.
type tickSummary struct {
	Files     int      `json:"files"`
	Ticks     int      `json:"ticks"`
	FirstTick uint64   `json:"first_tick"`
	LastTick  uint64   `json:"last_tick"`
	Loaded    int      `json:"loaded"`
	Evicted   int      `json:"evicted"`
	Rebuilt   int      `json:"rebuilt"`
	Destroyed int      `json:"destroyed"`
	Rebases   int      `json:"rebases"`
	Offset    [2]int64 `json:"offset"`
	MaxStepMS float64  `json:"max_step_ms"`
}

func summarizeTicks(worldDir string) (tickSummary, error) {
	var s tickSummary
	files, err := persistlog.TickFiles(worldDir)
	if err != nil {
		return s, err
	}
	s.Files = len(files)
	for _, path := range files {
		entries, err := persistlog.ReadTicks(path)
		if err != nil {
			return s, err
		}
		for _, e := range entries {
			if s.Ticks == 0 {
				s.FirstTick = e.Tick
			}
			s.Ticks++
			s.LastTick = e.Tick
			s.Loaded += e.Loaded
			s.Evicted += e.Evicted
			s.Rebuilt += e.Rebuilt
			s.Destroyed += e.Destroyed
			if e.Rebase != [2]int64{} {
				s.Rebases++
			}
			s.Offset = e.Offset
			if e.StepMS > s.MaxStepMS {
				s.MaxStepMS = e.StepMS
			}
		}
	}
	return s, nil
}

func ticksCmd(args []string) {
	fs, dataDir, worldID := worldFlags("ticks")
	_ = fs.Parse(args)

	s, err := summarizeTicks(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ticks:", err)
		os.Exit(1)
	}
	printJSON(s)
}

func chunksCmd(args []string) {
	fs, dataDir, worldID := worldFlags("chunks")
	dbPath := fs.String("db", "", "chunk db path (defaults to <world>/chunks.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "worlds", *worldID, "chunks.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "chunk db:", err)
		os.Exit(1)
	}
	db, err := chunkdb.OpenSQLite(path, zerolog.Nop())
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	n, err := db.Count()
	if err != nil {
		fmt.Fprintln(os.Stderr, "count:", err)
		os.Exit(1)
	}
	recent, err := db.Recent(*limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(map[string]any{"path": path, "count": n, "recent": recent})
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
