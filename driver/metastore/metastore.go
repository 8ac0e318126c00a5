// Package metastore keeps the history of unload runs in a local SQLite database.
// A Store is used by the orchestrating goroutine only.
package metastore

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	job         TEXT NOT NULL,
	scn         INTEGER NOT NULL DEFAULT 0,
	started_ms  INTEGER NOT NULL,
	finished_ms INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	row_count   INTEGER NOT NULL DEFAULT 0,
	byte_count  INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS unloaded_tables (
	run_id         TEXT NOT NULL,
	seq            INTEGER NOT NULL,
	table_name     TEXT NOT NULL,
	partition_name TEXT NOT NULL DEFAULT '',
	data_target    TEXT NOT NULL DEFAULT '',
	control_target TEXT NOT NULL DEFAULT '',
	row_count      INTEGER NOT NULL DEFAULT 0,
	byte_count     INTEGER NOT NULL DEFAULT 0,
	elapsed_ms     INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS unloaded_columns (
	run_id      TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	column_name TEXT NOT NULL,
	type_name   TEXT NOT NULL,
	codec       TEXT NOT NULL,
	width       INTEGER NOT NULL,
	field       TEXT NOT NULL,
	PRIMARY KEY (run_id, seq, position)
);
`

type Run struct {
	ID     string
	Job    string
	SCN    int64
	Start  time.Time
	End    time.Time
	Status string
	Rows   int64
	Bytes  int64
	Error  string
}

type Column struct {
	Position int
	Name     string
	TypeName string
	Codec    string
	Width    int
	Field    string
}

type TableRecord struct {
	Table     string
	Partition string
	Data      string
	Control   string
	Rows      int64
	Bytes     int64
	Elapsed   time.Duration
	Error     string
	Columns   []Column
}

type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the repository at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "metastore dir %v", dir)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open metastore %v", path)
	}
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "init metastore %v", path)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano() / int64(time.Millisecond)
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.Unix(0, ms*int64(time.Millisecond))
}

func (s *Store) BeginRun(r *Run) error {
	if r.Status == "" {
		r.Status = StatusRunning
	}
	_, err := s.db.Exec(`INSERT INTO runs (run_id, job, scn, started_ms, status) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Job, r.SCN, toMillis(r.Start), r.Status)
	return errors.Wrap(err, "record run start")
}

func (s *Store) FinishRun(r *Run) error {
	_, err := s.db.Exec(`UPDATE runs SET scn = ?, finished_ms = ?, status = ?, row_count = ?, byte_count = ?, error = ?
WHERE run_id = ?`, r.SCN, toMillis(r.End), r.Status, r.Rows, r.Bytes, r.Error, r.ID)
	return errors.Wrap(err, "record run end")
}

// RecordTable stores one unloaded table (or partition, or range) with its columns.
func (s *Store) RecordTable(runID string, t *TableRecord) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "record table")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "record table")
	}()

	var seq int64
	if err = tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM unloaded_tables WHERE run_id = ?`, runID).Scan(&seq); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO unloaded_tables
(run_id, seq, table_name, partition_name, data_target, control_target, row_count, byte_count, elapsed_ms, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, t.Table, t.Partition, t.Data, t.Control, t.Rows, t.Bytes,
		int64(t.Elapsed/time.Millisecond), t.Error)
	if err != nil {
		return err
	}
	for _, c := range t.Columns {
		_, err = tx.Exec(`INSERT INTO unloaded_columns
(run_id, seq, position, column_name, type_name, codec, width, field) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, seq, c.Position, c.Name, c.TypeName, c.Codec, c.Width, c.Field)
		if err != nil {
			return err
		}
	}
	return nil
}

// Runs lists the most recent runs first. limit <= 0 lists all.
func (s *Store) Runs(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT run_id, job, scn, started_ms, finished_ms, status, row_count, byte_count, error
FROM runs ORDER BY started_ms DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var start, end int64
		if err = rows.Scan(&r.ID, &r.Job, &r.SCN, &start, &end, &r.Status, &r.Rows, &r.Bytes, &r.Error); err != nil {
			return nil, err
		}
		r.Start, r.End = fromMillis(start), fromMillis(end)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Tables lists what a run unloaded, in recording order.
func (s *Store) Tables(runID string) ([]*TableRecord, error) {
	rows, err := s.db.Query(`SELECT seq, table_name, partition_name, data_target, control_target, row_count, byte_count, elapsed_ms, error
FROM unloaded_tables WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "list tables")
	}
	var tables []*TableRecord
	var seqs []int64
	for rows.Next() {
		t := &TableRecord{}
		var seq, elapsed int64
		if err = rows.Scan(&seq, &t.Table, &t.Partition, &t.Data, &t.Control, &t.Rows, &t.Bytes, &elapsed, &t.Error); err != nil {
			rows.Close()
			return nil, err
		}
		t.Elapsed = time.Duration(elapsed) * time.Millisecond
		tables = append(tables, t)
		seqs = append(seqs, seq)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// one connection: the table cursor is closed before reading columns
	for i, t := range tables {
		if t.Columns, err = s.columns(runID, seqs[i]); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func (s *Store) columns(runID string, seq int64) ([]Column, error) {
	rows, err := s.db.Query(`SELECT position, column_name, type_name, codec, width, field
FROM unloaded_columns WHERE run_id = ? AND seq = ? ORDER BY position`, runID, seq)
	if err != nil {
		return nil, errors.Wrap(err, "list columns")
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err = rows.Scan(&c.Position, &c.Name, &c.TypeName, &c.Codec, &c.Width, &c.Field); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}
