// Package indexdb keeps a queryable SQLite index beside the JSONL
// streams: tick summaries, export records, and terrain census rows. The
// JSONL logs stay the source of truth; the index may drop writes under
// pressure.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"verdant.world/internal/sim/engine"
	"verdant.world/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqExport
	reqFlush
)

type req struct {
	kind reqKind

	tick   engine.TickSummary
	export exportRow
	flush  chan struct{}
}

type exportRow struct {
	Digest     string
	Seed       int64
	Cells      int
	Stats      world.Statistics
	RecordedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
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
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
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
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			player_x INTEGER NOT NULL,
			player_y INTEGER NOT NULL,
			companion TEXT NOT NULL,
			deer INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS exports (
			digest TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS terrain_stats (
			digest TEXT NOT NULL,
			terrain TEXT NOT NULL,
			count INTEGER NOT NULL,
			percent REAL NOT NULL,
			PRIMARY KEY (digest, terrain)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exports_seed ON exports(seed);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry engine.TickSummary) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
	}
	return nil
}

// RecordExport indexes one world export: the digest row plus the terrain
// census that goes with it.
func (s *SQLiteIndex) RecordExport(digest string, seed int64, cells int, stats world.Statistics) {
	if s == nil || s.closed.Load() {
		return
	}
	if digest == "" {
		return
	}
	r := exportRow{
		Digest:     digest,
		Seed:       seed,
		Cells:      cells,
		Stats:      stats,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqExport, export: r}:
	default:
	}
}

// TickCount reports how many tick rows the index holds. Used by the
// inspect tool and tests.
func (s *SQLiteIndex) TickCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n)
	return n, err
}

// ExportSeeds lists the distinct seeds with at least one indexed export.
func (s *SQLiteIndex) ExportSeeds() ([]int64, error) {
	rows, err := s.db.Query(`SELECT DISTINCT seed FROM exports ORDER BY seed`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var seed int64
		if err := rows.Scan(&seed); err != nil {
			return nil, err
		}
		out = append(out, seed)
	}
	return out, rows.Err()
}

// TerrainCensus returns the indexed terrain counts for one export digest.
func (s *SQLiteIndex) TerrainCensus(digest string) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT terrain, count FROM terrain_stats WHERE digest = ?`, digest)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var terrain string
		var count int
		if err := rows.Scan(&terrain, &count); err != nil {
			return nil, err
		}
		out[terrain] = count
	}
	return out, rows.Err()
}

// Flush blocks until every write queued before the call has committed.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, flush: done}:
		<-done
	default:
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,player_x,player_y,companion,deer,raw_json) VALUES(?,?,?,?,?,?)`)
	insertExport, _ := s.db.Prepare(`INSERT OR REPLACE INTO exports(digest,seed,cells,recorded_at) VALUES(?,?,?,?)`)
	insertStat, _ := s.db.Prepare(`INSERT OR REPLACE INTO terrain_stats(digest,terrain,count,percent) VALUES(?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertExport != nil {
			_ = insertExport.Close()
		}
		if insertStat != nil {
			_ = insertStat.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.flush)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			b, _ := json.Marshal(r.tick)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					int64(r.tick.Tick),
					r.tick.PlayerX,
					r.tick.PlayerY,
					r.tick.Companion,
					len(r.tick.Deer),
					string(b),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqExport:
			e := r.export
			if insertExport != nil {
				if _, err := tx.Stmt(insertExport).Exec(e.Digest, e.Seed, e.Cells, e.RecordedAt); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for terrain, count := range e.Stats.Counts {
				if insertStat == nil {
					break
				}
				if _, err := tx.Stmt(insertStat).Exec(e.Digest, terrain, count, e.Stats.Percents[terrain]); err != nil {
					rollback()
					break
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
