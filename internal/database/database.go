package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// StepDB manages the SQLite audit trail of executed teardown steps
type StepDB struct {
	db *sql.DB
}

// StepRecord is one executed step as stored in the audit trail
type StepRecord struct {
	ID         int64
	Timestamp  time.Time
	RunName    string
	Kind       string
	Target     string
	Outcome    string
	Detail     string
	ErrorMsg   string
	DurationMs int64
}

// NewStepDB opens (creating if needed) the audit database at dbPath
func NewStepDB(dbPath string) (*StepDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A trivial query forces file creation and surfaces permission problems
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}

	sdb := &StepDB{db: db}
	if err = sdb.initSchema(); err != nil {
		return nil, err
	}

	err = nil
	return sdb, nil
}

func (d *StepDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		run_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT,
		error_message TEXT,
		duration_ms INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_steps_timestamp ON steps(timestamp);
	CREATE INDEX IF NOT EXISTS idx_steps_outcome ON steps(outcome);
	CREATE INDEX IF NOT EXISTS idx_steps_kind ON steps(kind);
	CREATE INDEX IF NOT EXISTS idx_steps_run_name ON steps(run_name);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordStep appends one executed step to the audit trail
func (d *StepDB) RecordStep(runName, kind, target, outcome, detail, errorMsg string, duration time.Duration) error {
	query := `
	INSERT INTO steps (timestamp, run_name, kind, target, outcome, detail, error_message, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.Exec(
		query,
		time.Now().UTC(),
		runName,
		kind,
		target,
		outcome,
		detail,
		errorMsg,
		duration.Milliseconds(),
	)
	return err
}

// Close closes the database connection
func (d *StepDB) Close() error {
	return d.db.Close()
}
