package chunkdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"tilestream.dev/internal/sim/world/terrain/store"
)

// SQLite persists evicted chunks keyed by absolute chunk coordinate.
// Writes are queued to a single writer goroutine; until a write commits,
// the blob is served from memory so a chunk can be reloaded right after
// it was saved.
type SQLite struct {
	db  *sql.DB
	log zerolog.Logger

	ch   chan store.Coord
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	mu      sync.Mutex
	pending map[store.Coord]pendingBlob
	seq     uint64

	written  atomic.Uint64
	failed   atomic.Uint64
	overflow atomic.Uint64
}

type pendingBlob struct {
	blob []byte
	seq  uint64
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Pending       int    `json:"pending"`
	WrittenTotal  uint64 `json:"written_total"`
	ErrorTotal    uint64 `json:"error_total"`
	OverflowTotal uint64 `json:"overflow_total"`
}

func OpenSQLite(path string, log zerolog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, eris.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "pragmas")
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "schema")
	}

	s := &SQLite{
		db:      db,
		log:     log.With().Str("component", "chunkdb").Logger(),
		ch:      make(chan store.Coord, 4096),
		pending: map[store.Coord]pendingBlob{},
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			tiles BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (cx, cy)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SaveChunk encodes ch immediately and queues the write.
func (s *SQLite) SaveChunk(ch *store.Chunk) error {
	if s == nil || s.closed.Load() {
		return eris.New("chunkdb closed")
	}
	blob, err := store.EncodeTiles(ch)
	if err != nil {
		return eris.Wrapf(err, "encode chunk %v", ch.Coord())
	}
	abs := ch.Coord()
	s.mu.Lock()
	s.seq++
	s.pending[abs] = pendingBlob{blob: blob, seq: s.seq}
	s.mu.Unlock()

	select {
	case s.ch <- abs:
	default:
		// The blob stays pending and is written on the next batch or on Close.
		s.overflow.Add(1)
	}
	return nil
}

// LoadChunk returns the stored chunk at abs, or ok=false when there is none.
func (s *SQLite) LoadChunk(abs store.Coord) (*store.Chunk, bool, error) {
	s.mu.Lock()
	p, ok := s.pending[abs]
	s.mu.Unlock()
	if ok {
		ch, err := store.DecodeTiles(abs, p.blob)
		return ch, err == nil, err
	}

	var blob []byte
	err := s.db.QueryRow(`SELECT tiles FROM chunks WHERE cx=? AND cy=?`, abs.X, abs.Y).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "select chunk %v", abs)
	}
	ch, err := store.DecodeTiles(abs, blob)
	if err != nil {
		return nil, false, err
	}
	return ch, true, nil
}

// Count is the number of committed chunks.
func (s *SQLite) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// Entry describes one committed chunk row.
type Entry struct {
	CX        int64  `json:"cx"`
	CY        int64  `json:"cy"`
	Bytes     int    `json:"bytes"`
	UpdatedAt string `json:"updated_at"`
}

// Recent lists up to limit committed chunks, most recently written first.
func (s *SQLite) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT cx,cy,LENGTH(tiles),updated_at FROM chunks ORDER BY updated_at DESC, cx, cy LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "query chunks")
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.CX, &e.CY, &e.Bytes, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Stats() Stats {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Pending:       pending,
		WrittenTotal:  s.written.Load(),
		ErrorTotal:    s.failed.Load(),
		OverflowTotal: s.overflow.Load(),
	}
}

// Close drains the queue, writes whatever is still pending and closes the
// database.
func (s *SQLite) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.writeBatch(s.pendingCoords())
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

func (s *SQLite) loop() {
	batch := make([]store.Coord, 0, 256)
	for abs := range s.ch {
		batch = append(batch[:0], abs)
	drain:
		for len(batch) < cap(batch) {
			select {
			case next, ok := <-s.ch:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		if err := s.writeBatch(batch); err != nil {
			s.log.Error().Err(err).Int("chunks", len(batch)).Msg("write batch")
		}
	}
}

func (s *SQLite) pendingCoords() []store.Coord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Coord, 0, len(s.pending))
	for k := range s.pending {
		out = append(out, k)
	}
	return out
}

// writeBatch commits the current pending blobs for coords in one
// transaction. A blob replaced while the write was in flight stays pending.
func (s *SQLite) writeBatch(coords []store.Coord) error {
	if len(coords) == 0 {
		return nil
	}
	s.mu.Lock()
	rows := make(map[store.Coord]pendingBlob, len(coords))
	for _, c := range coords {
		if p, ok := s.pending[c]; ok {
			rows[c] = p
		}
	}
	s.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		s.failed.Add(1)
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO chunks(cx,cy,tiles,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		s.failed.Add(1)
		return err
	}
	defer stmt.Close()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for c, p := range rows {
		if _, err := stmt.Exec(c.X, c.Y, p.blob, now); err != nil {
			s.failed.Add(1)
			return eris.Wrapf(err, "upsert chunk %v", c)
		}
	}
	if err := tx.Commit(); err != nil {
		s.failed.Add(1)
		return err
	}

	s.mu.Lock()
	for c, p := range rows {
		if cur, ok := s.pending[c]; ok && cur.seq == p.seq {
			delete(s.pending, c)
		}
	}
	s.mu.Unlock()
	s.written.Add(uint64(len(rows)))
	return nil
}
