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

	"voxelwalk.dev/internal/persistence/snapshot"
	"voxelwalk.dev/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over the JSONL logs and snapshot
// files. Writes go through a buffered channel into a single writer goroutine;
// when the buffer fills, records are dropped — the logs stay the source of
// truth.
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
	reqEdit
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	edit     world.EditAuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick   uint64
	Path   string
	Blocks int
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
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL durability is
	// enough for a secondary index.
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
			eye_x REAL NOT NULL,
			eye_y REAL NOT NULL,
			eye_z REAL NOT NULL,
			blocks INTEGER NOT NULL,
			inputs INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS edits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			session TEXT NOT NULL,
			op TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			material INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_pos_tick ON edits(x, z, y, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_session_tick ON edits(session, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			blocks INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`)
	return err
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

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.EditAuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEdit, edit: entry}:
	default:
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.V1) {
	if s == nil || s.closed.Load() {
		return
	}
	blocks := 0
	for _, c := range snap.Cells {
		if c != 0 {
			blocks++
		}
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: snapshotRow{
		Tick:   snap.Header.Tick,
		Path:   path,
		Blocks: blocks,
	}}:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,eye_x,eye_y,eye_z,blocks,inputs,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertEdit, _ := s.db.Prepare(`INSERT OR REPLACE INTO edits(tick,seq,session,op,x,y,z,material,ok,code) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,blocks,recorded_at) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertEdit, insertSnapshot} {
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
		commitMaxWait = 10 * time.Millisecond
	)

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

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			raw, _ := json.Marshal(r.tick)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					int64(r.tick.Tick),
					r.tick.Eye[0], r.tick.Eye[1], r.tick.Eye[2],
					r.tick.Blocks,
					len(r.tick.Inputs),
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqEdit:
			e := r.edit
			if insertEdit != nil {
				ok := 0
				if e.OK {
					ok = 1
				}
				if _, err := tx.Stmt(insertEdit).Exec(
					int64(e.Tick),
					int64(e.Seq),
					e.Session,
					e.Op,
					e.Pos[0], e.Pos[1], e.Pos[2],
					int(e.Material),
					ok,
					e.Code,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					int64(sn.Tick),
					sn.Path,
					sn.Blocks,
					time.Now().UTC().Format(time.RFC3339Nano),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

// LatestSnapshotPath returns the path of the newest recorded snapshot, or ""
// when none exist. Queries share the writer's connection; they are meant for
// startup resume and tooling, not the hot path.
func (s *SQLiteIndex) LatestSnapshotPath() (string, error) {
	var path string
	err := s.db.QueryRow(`SELECT path FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return path, err
}

// EditCount reports how many edits the index holds for one grid cell.
func (s *SQLiteIndex) EditCount(x, y, z int) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM edits WHERE x=? AND y=? AND z=?`, x, y, z).Scan(&n)
	return n, err
}
