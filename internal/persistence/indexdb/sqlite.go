// Package indexdb maintains a queryable SQLite index of stream events.
// The JSONL event logs remain the source of truth; this index exists so
// the admin tool can answer questions without scanning archives.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"longwater/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan world.EventLogEntry
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
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
		// High buffer: chunk churn is bursty when the observer speeds up.
		ch: make(chan world.EventLogEntry, 65536),
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
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
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
		`CREATE TABLE IF NOT EXISTS builds (
			tick INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			z_min REAL NOT NULL,
			z_max REAL NOT NULL,
			biomes TEXT NOT NULL,
			placements INTEGER NOT NULL,
			spawned INTEGER NOT NULL,
			build_ms REAL NOT NULL,
			build_steps INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (tick, chunk_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_chunk ON builds(chunk_index, tick);`,
		`CREATE TABLE IF NOT EXISTS evictions (
			tick INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			placements INTEGER NOT NULL,
			PRIMARY KEY (tick, chunk_index)
		);`,
		`CREATE TABLE IF NOT EXISTS failures (
			tick INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			err TEXT NOT NULL,
			PRIMARY KEY (tick, chunk_index)
		);`,
		`CREATE TABLE IF NOT EXISTS corridor (
			tick INTEGER PRIMARY KEY,
			window_start REAL NOT NULL,
			segments INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
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

// WriteEvent satisfies world.EventSink. Events are indexed
// asynchronously and dropped if the indexer falls behind; the JSONL
// logs remain complete.
func (s *SQLiteIndex) WriteEvent(entry world.EventLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- entry:
	default:
	}
	return nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertBuild, _ := s.db.Prepare(`INSERT OR REPLACE INTO builds(tick,chunk_index,z_min,z_max,biomes,placements,spawned,build_ms,build_steps,digest) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertEvict, _ := s.db.Prepare(`INSERT OR REPLACE INTO evictions(tick,chunk_index,placements) VALUES(?,?,?)`)
	insertFail, _ := s.db.Prepare(`INSERT OR REPLACE INTO failures(tick,chunk_index,err) VALUES(?,?,?)`)
	insertCorridor, _ := s.db.Prepare(`INSERT OR REPLACE INTO corridor(tick,window_start,segments) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertBuild, insertEvict, insertFail, insertCorridor} {
			if st != nil {
				_ = st.Close()
			}
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

	for e := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch e.Kind {
		case "chunk_active":
			if insertBuild != nil {
				_, err = tx.Stmt(insertBuild).Exec(
					int64(e.Tick), e.Index, e.ZMin, e.ZMax,
					strings.Join(e.Biomes, ","),
					e.Placements, e.Spawned, e.BuildMillis, e.BuildSteps, e.Digest)
				opCount++
			}
		case "chunk_evicted":
			if insertEvict != nil {
				_, err = tx.Stmt(insertEvict).Exec(int64(e.Tick), e.Index, e.Placements)
				opCount++
			}
		case "chunk_failed":
			if insertFail != nil {
				_, err = tx.Stmt(insertFail).Exec(int64(e.Tick), e.Index, e.Err)
				opCount++
			}
		case "corridor":
			if insertCorridor != nil {
				_, err = tx.Stmt(insertCorridor).Exec(int64(e.Tick), e.WindowStart, e.Segments)
				opCount++
			}
		}
		if err != nil {
			rollback()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

// BuildRow is one indexed chunk activation.
type BuildRow struct {
	Tick       uint64
	ChunkIndex int
	ZMin, ZMax float64
	Biomes     []string
	Placements int
	Spawned    int
	BuildMs    float64
	BuildSteps int
	Digest     string
}

// RecentBuilds returns the newest n chunk activations, newest first.
func (s *SQLiteIndex) RecentBuilds(n int) ([]BuildRow, error) {
	rows, err := s.db.Query(`
		SELECT tick, chunk_index, z_min, z_max, biomes, placements, spawned, build_ms, build_steps, digest
		FROM builds ORDER BY tick DESC, chunk_index DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BuildRow
	for rows.Next() {
		var r BuildRow
		var tick int64
		var biomes string
		if err := rows.Scan(&tick, &r.ChunkIndex, &r.ZMin, &r.ZMax, &biomes,
			&r.Placements, &r.Spawned, &r.BuildMs, &r.BuildSteps, &r.Digest); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		if biomes != "" {
			r.Biomes = strings.Split(biomes, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates the whole index for the admin overview.
type Summary struct {
	Builds     int
	Evictions  int
	Failures   int
	Placements int
	AvgBuildMs float64
}

func (s *SQLiteIndex) Summarize() (Summary, error) {
	var out Summary
	err := s.db.QueryRow(`
		SELECT count(*), coalesce(sum(placements),0), coalesce(avg(build_ms),0) FROM builds`).
		Scan(&out.Builds, &out.Placements, &out.AvgBuildMs)
	if err != nil {
		return Summary{}, err
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM evictions`).Scan(&out.Evictions); err != nil {
		return Summary{}, err
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM failures`).Scan(&out.Failures); err != nil {
		return Summary{}, err
	}
	return out, nil
}

// FailuresFor lists indexed failures for one chunk index.
func (s *SQLiteIndex) FailuresFor(chunkIndex int) ([]string, error) {
	rows, err := s.db.Query(`SELECT err FROM failures WHERE chunk_index = ? ORDER BY tick`, chunkIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
