package world

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/coocood/freecache"
	"github.com/rs/zerolog"

	"tilestream.dev/internal/persistence/snapshot"
	"tilestream.dev/internal/sim/world/terrain/gen"
	"tilestream.dev/internal/sim/world/terrain/store"
)

// minEvictCache keeps freecache's per-entry limit (size/1024) above the
// largest encoded chunk.
const minEvictCache = 16 << 20

// TickLogger receives one entry per completed tick.
type TickLogger interface {
	WriteTick(TickLogEntry) error
}

type TickLogEntry struct {
	Tick      uint64   `json:"tick"`
	Offset    [2]int64 `json:"offset"`
	Rebase    [2]int64 `json:"rebase,omitempty"`
	Loaded    int      `json:"loaded,omitempty"`
	Evicted   int      `json:"evicted,omitempty"`
	Rebuilt   int      `json:"rebuilt,omitempty"`
	Destroyed int      `json:"destroyed,omitempty"`
	Resident  int      `json:"resident"`
	StepMS    float64  `json:"step_ms"`
}

type Option func(*World)

func WithLogger(l zerolog.Logger) Option {
	return func(w *World) { w.log = l.With().Str("component", "world").Logger() }
}

// WithPersistence makes modified chunks durable across eviction.
func WithPersistence(p store.Persistence) Option {
	return func(w *World) { w.persist = p }
}

// WithEvictCache keeps encoded modified chunks in memory after eviction.
func WithEvictCache(bytes int) Option {
	return func(w *World) {
		if bytes <= 0 {
			w.evictCache = nil
			return
		}
		w.evictCache = freecache.NewCache(max(bytes, minEvictCache))
	}
}

func WithTickLogger(l TickLogger) Option {
	return func(w *World) { w.tickLog = l }
}

// WithSnapshotSink receives snapshots requested through RequestSnapshot or
// taken every Config.SnapshotEveryTicks.
func WithSnapshotSink(ch chan<- snapshot.SnapshotV1) Option {
	return func(w *World) { w.snapshotSink = ch }
}

// World streams chunks around a main entity on a floating origin.
// All state except Frame and Metrics belongs to the goroutine calling Step.
type World struct {
	cfg Config
	gen gen.Generator
	log zerolog.Logger

	c    *store.Container
	main store.Entity

	persist    store.Persistence
	evictCache *freecache.Cache
	tickLog    TickLogger

	tick    atomic.Uint64
	now     time.Duration
	stats   tickStats
	totals  totals
	frame   atomic.Pointer[RenderFrame]
	metrics atomic.Value

	snapshotReqs chan snapshotRequest
	snapshotSink chan<- snapshot.SnapshotV1
	stop         chan struct{}
	stopOnce     sync.Once
}

type tickStats struct {
	rebase    store.Coord
	loaded    int
	evicted   int
	rebuilt   int
	destroyed int
}

type totals struct {
	loaded  uint64
	evicted uint64
	rebases uint64
	saved   uint64
}

func New(cfg Config, g gen.Generator, opts ...Option) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := gen.Validate(g); err != nil {
		return nil, err
	}
	w := &World{
		cfg:          cfg,
		gen:          g,
		log:          zerolog.Nop(),
		c:            store.NewContainer(cfg.geometry()),
		snapshotReqs: make(chan snapshotRequest, 16),
		stop:         make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	w.c.SetLoader(w)
	w.publishFrame(0)
	w.metrics.Store(WorldMetrics{})
	return w, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() Config { return w.cfg }

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Container exposes the resident set to the simulation goroutine.
func (w *World) Container() *store.Container { return w.c }

// SetMain registers e and makes it the entity the origin follows.
func (w *World) SetMain(e store.Entity) {
	w.c.AddEntity(e)
	w.main = e
}

func (w *World) Main() store.Entity { return w.main }

func (w *World) AddEntity(e store.Entity) { w.c.AddEntity(e) }

func (w *World) RemoveEntity(id string) bool {
	if w.main != nil && w.main.ID() == id {
		w.main = nil
	}
	return w.c.RemoveEntity(id)
}
