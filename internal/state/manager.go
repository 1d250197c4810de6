// Package state records push execution history in a local sqlite database,
// one row per push attempt, so `gistwatch history` can answer what was
// pushed when and whether it worked.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Manager owns the history database
type Manager struct {
	db *sql.DB
}

// PushRecord is one completed push attempt for a group
type PushRecord struct {
	ID     int64
	Group  string
	Start  time.Time
	End    time.Time
	Status string // "success" or "failed"
	Files  int
	Error  string
}

// NewManager opens (creating if needed) the history database under dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "gistwatch.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	m := &Manager{db: db}
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return m, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pushes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_name TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		files INTEGER DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pushes_group_time ON pushes(group_name, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_pushes_status ON pushes(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

// RecordPush stores one push attempt
func (m *Manager) RecordPush(record PushRecord) error {
	if record.Status != StatusSuccess && record.Status != StatusFailed {
		return fmt.Errorf("invalid status: %s (must be %q or %q)", record.Status, StatusSuccess, StatusFailed)
	}

	query := `
		INSERT INTO pushes (group_name, start_time, end_time, status, files, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		record.Group,
		record.Start,
		record.End,
		record.Status,
		record.Files,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record push: %w", err)
	}

	return nil
}

// History returns the most recent pushes for a group, newest first
func (m *Manager) History(group string, limit int) ([]PushRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT id, group_name, start_time, end_time, status, files, error
		FROM pushes
		WHERE group_name = ?
		ORDER BY start_time DESC
		LIMIT ?
	`

	rows, err := m.db.Query(query, group, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// AllHistory returns the most recent pushes across every group, newest first
func (m *Manager) AllHistory(limit int) ([]PushRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT id, group_name, start_time, end_time, status, files, error
		FROM pushes
		ORDER BY start_time DESC
		LIMIT ?
	`

	rows, err := m.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query all history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LastSuccess returns the most recent successful push for a group, or nil
// when the group has never pushed successfully
func (m *Manager) LastSuccess(group string) (*PushRecord, error) {
	query := `
		SELECT id, group_name, start_time, end_time, status, files, error
		FROM pushes
		WHERE group_name = ? AND status = 'success'
		ORDER BY start_time DESC
		LIMIT 1
	`

	var record PushRecord
	err := m.db.QueryRow(query, group).Scan(
		&record.ID,
		&record.Group,
		&record.Start,
		&record.End,
		&record.Status,
		&record.Files,
		&record.Error,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &record, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]PushRecord, error) {
	var records []PushRecord
	for rows.Next() {
		var record PushRecord
		err := rows.Scan(
			&record.ID,
			&record.Group,
			&record.Start,
			&record.End,
			&record.Status,
			&record.Files,
			&record.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}
