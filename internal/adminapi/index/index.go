// Package index implements a secondary sqlite read-model for
// operational visibility: session connect/disconnect events and
// snapshot saves, written off the simulation's hot path by a
// dedicated goroutine so a slow disk never stalls the executor.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type Index struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqSession reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind     reqKind
	session  sessionEventRow
	snapshot snapshotRow
}

type sessionEventRow struct {
	SessionID string
	PlayerID  string
	Event     string // "connect" or "disconnect"
	At        string
}

type snapshotRow struct {
	Path      string
	Entities  int
	Layers    int
	SavedAt   string
}

// Open creates (or reuses) a sqlite database at path and starts the
// background writer goroutine.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index db path")
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

	idx := &Index{db: db, ch: make(chan req, 4096)}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.loop()
	}()
	return idx, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
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
		`CREATE TABLE IF NOT EXISTS session_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			event TEXT NOT NULL,
			at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			entities INTEGER NOT NULL,
			layers INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) loop() {
	for r := range idx.ch {
		switch r.kind {
		case reqSession:
			_, _ = idx.db.Exec(
				`INSERT INTO session_events(session_id, player_id, event, at) VALUES (?, ?, ?, ?)`,
				r.session.SessionID, r.session.PlayerID, r.session.Event, r.session.At,
			)
		case reqSnapshot:
			_, _ = idx.db.Exec(
				`INSERT INTO snapshots(path, entities, layers, saved_at) VALUES (?, ?, ?, ?)`,
				r.snapshot.Path, r.snapshot.Entities, r.snapshot.Layers, r.snapshot.SavedAt,
			)
		}
	}
}

// RecordSessionEvent enqueues a session lifecycle event. Never blocks
// the caller past the channel send; a full channel drops the event
// rather than stall the executor.
func (idx *Index) RecordSessionEvent(sessionID, playerID, event string, at time.Time) {
	if idx.closed.Load() {
		return
	}
	select {
	case idx.ch <- req{kind: reqSession, session: sessionEventRow{
		SessionID: sessionID, PlayerID: playerID, Event: event, At: at.UTC().Format(time.RFC3339Nano),
	}}:
	default:
	}
}

// RecordSnapshot enqueues a record of a completed snapshot save.
func (idx *Index) RecordSnapshot(path string, entities, layers int, at time.Time) {
	if idx.closed.Load() {
		return
	}
	select {
	case idx.ch <- req{kind: reqSnapshot, snapshot: snapshotRow{
		Path: path, Entities: entities, Layers: layers, SavedAt: at.UTC().Format(time.RFC3339Nano),
	}}:
	default:
	}
}

// RecentSnapshots returns the most recently recorded snapshot rows,
// newest first. The admin state endpoint does not read it.
func (idx *Index) RecentSnapshots(limit int) ([]SnapshotSummary, error) {
	rows, err := idx.db.Query(
		`SELECT path, entities, layers, saved_at FROM snapshots ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotSummary
	for rows.Next() {
		var s SnapshotSummary
		if err := rows.Scan(&s.Path, &s.Entities, &s.Layers, &s.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type SnapshotSummary struct {
	Path     string `json:"path"`
	Entities int    `json:"entities"`
	Layers   int    `json:"layers"`
	SavedAt  string `json:"savedAt"`
}

func (idx *Index) Close() error {
	var err error
	idx.once.Do(func() {
		idx.closed.Store(true)
		close(idx.ch)
		idx.wg.Wait()
		err = idx.db.Close()
	})
	return err
}
