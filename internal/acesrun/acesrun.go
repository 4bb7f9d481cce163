// Package acesrun is the ambient run ledger: a SQLite-backed record of
// every extraction invocation, one row per shard, modeled on the teacher's
// session/lock bookkeeping (internal/session/session.go, internal/lock/lock.go)
// but scoped to this tool's one workload instead of a general task tracker.
package acesrun

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	config_path TEXT NOT NULL,
	predicates_path TEXT NOT NULL,
	output_path TEXT,
	shard_index INTEGER NOT NULL DEFAULT 0,
	shard_count INTEGER NOT NULL DEFAULT 1,
	status TEXT NOT NULL DEFAULT 'running',
	row_count INTEGER DEFAULT 0,
	error TEXT,
	started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_shard ON runs(shard_index, shard_count);
`

// Status values a run can hold.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one recorded shard invocation.
type Run struct {
	ID             string
	ConfigPath     string
	PredicatesPath string
	OutputPath     sql.NullString
	ShardIndex     int
	ShardCount     int
	Status         string
	RowCount       int64
	Error          sql.NullString
	StartedAt      time.Time
	CompletedAt    sql.NullTime
}

// Ledger wraps a SQLite database holding the run table.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path, initializing the
// schema on first use (mirrors db.Open's init-on-open style).
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("acesrun: opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("acesrun: connecting to %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("acesrun: initializing schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database handle.
func (l *Ledger) Close() error { return l.db.Close() }

// Start records a new run as StatusRunning and returns its generated ID.
func (l *Ledger) Start(configPath, predicatesPath string, shardIndex, shardCount int) (string, error) {
	id := uuid.NewString()
	_, err := l.db.Exec(
		`INSERT INTO runs (id, config_path, predicates_path, shard_index, shard_count, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, configPath, predicatesPath, shardIndex, shardCount, StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("acesrun: starting run: %w", err)
	}
	return id, nil
}

// Succeed marks id as StatusSucceeded, recording the output path and row
// count produced.
func (l *Ledger) Succeed(id, outputPath string, rowCount int64) error {
	_, err := l.db.Exec(
		`UPDATE runs SET status = ?, output_path = ?, row_count = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`,
		StatusSucceeded, outputPath, rowCount, id,
	)
	if err != nil {
		return fmt.Errorf("acesrun: completing run %s: %w", id, err)
	}
	return nil
}

// Fail marks id as StatusFailed, recording the error that stopped it.
func (l *Ledger) Fail(id string, cause error) error {
	_, err := l.db.Exec(
		`UPDATE runs SET status = ?, error = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`,
		StatusFailed, cause.Error(), id,
	)
	if err != nil {
		return fmt.Errorf("acesrun: marking run %s failed: %w", id, err)
	}
	return nil
}

// Get retrieves one run by ID.
func (l *Ledger) Get(id string) (*Run, error) {
	var r Run
	err := l.db.QueryRow(
		`SELECT id, config_path, predicates_path, output_path, shard_index, shard_count,
		        status, row_count, error, started_at, completed_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.ConfigPath, &r.PredicatesPath, &r.OutputPath, &r.ShardIndex, &r.ShardCount,
		&r.Status, &r.RowCount, &r.Error, &r.StartedAt, &r.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("acesrun: run %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("acesrun: fetching run %s: %w", id, err)
	}
	return &r, nil
}

// List returns the most recent runs, newest first, limited to limit rows
// (0 means no limit).
func (l *Ledger) List(limit int) ([]Run, error) {
	query := `SELECT id, config_path, predicates_path, output_path, shard_index, shard_count,
	                  status, row_count, error, started_at, completed_at
	           FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("acesrun: listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ConfigPath, &r.PredicatesPath, &r.OutputPath, &r.ShardIndex, &r.ShardCount,
			&r.Status, &r.RowCount, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("acesrun: scanning run row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("acesrun: reading run rows: %w", err)
	}
	return out, nil
}

// IncompleteShards reports which shard indices in [0, shardCount) have no
// StatusSucceeded run yet, so a re-run can skip shards that already landed.
func (l *Ledger) IncompleteShards(configPath string, shardCount int) ([]int, error) {
	rows, err := l.db.Query(
		`SELECT DISTINCT shard_index FROM runs WHERE config_path = ? AND shard_count = ? AND status = ?`,
		configPath, shardCount, StatusSucceeded,
	)
	if err != nil {
		return nil, fmt.Errorf("acesrun: querying completed shards: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("acesrun: scanning shard index: %w", err)
		}
		done[idx] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("acesrun: reading shard rows: %w", err)
	}

	var incomplete []int
	for i := 0; i < shardCount; i++ {
		if !done[i] {
			incomplete = append(incomplete, i)
		}
	}
	return incomplete, nil
}
