package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite stores one row per placement. Appends are serialized through a
// single writer goroutine; each is one INSERT, so a region is never seen
// half-written.
type SQLite struct {
	db *sql.DB

	mu   sync.RWMutex // guards sends on ch against close
	ch   chan appendReq
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type appendReq struct {
	region RegionKey
	p      Placement
	done   chan error
}

func OpenSQLite(path string) (*SQLite, error) {
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

	s := &SQLite{db: db, ch: make(chan appendReq, 1024)}
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
		`CREATE TABLE IF NOT EXISTS placements (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			rx INTEGER NOT NULL,
			rz INTEGER NOT NULL,
			structure TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_placements_region ON placements(rx, rz, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_placements_structure ON placements(structure);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR IGNORE INTO meta(key, value) VALUES('schema_version', '1');`)
	return err
}

func (s *SQLite) loop() {
	for r := range s.ch {
		r.done <- s.insert(r.region, r.p)
	}
}

func (s *SQLite) insert(k RegionKey, p Placement) error {
	_, err := s.db.Exec(
		`INSERT INTO placements(id, rx, rz, structure, x, y, z, cx, cz, created_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.ID, k.RX, k.RZ, p.Structure, p.Anchor.X, p.Anchor.Y, p.Anchor.Z, p.ChunkX, p.ChunkZ,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite append %s: %w", k, err)
	}
	return nil
}

func (s *SQLite) Append(ctx context.Context, k RegionKey, p Placement) error {
	r := appendReq{region: k, p: p, done: make(chan error, 1)}
	s.mu.RLock()
	if s.closed.Load() {
		s.mu.RUnlock()
		return ErrClosed
	}
	select {
	case s.ch <- r:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	// The insert runs even if ctx ends now; wait for it so callers never
	// see an append that may or may not have happened.
	return <-r.done
}

func (s *SQLite) Get(ctx context.Context, k RegionKey) (*Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, structure, x, y, z, cx, cz FROM placements WHERE rx = ? AND rz = ? ORDER BY seq`,
		k.RX, k.RZ)
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", k, err)
	}
	defer rows.Close()
	var ps []Placement
	for rows.Next() {
		var p Placement
		if err := rows.Scan(&p.ID, &p.Structure, &p.Anchor.X, &p.Anchor.Y, &p.Anchor.Z, &p.ChunkX, &p.ChunkZ); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return newSnapshot(k, ps), nil
}

// Count is the total number of stored placements.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM placements`).Scan(&n)
	return n, err
}

func (s *SQLite) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
