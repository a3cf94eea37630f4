package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vincentbai/clicktrace-agent/internal/models"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type Database struct {
	db    *sql.DB
	newID func() string
}

// CaptureFilter narrows ListCaptures. Zero fields match everything.
type CaptureFilter struct {
	Client string
	Path   string
	Since  time.Time
	Limit  int
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{
		db: db,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS captures(
	  id           TEXT    PRIMARY KEY,
	  received_utc INTEGER NOT NULL,
	  received_iso TEXT    NOT NULL,
	  path         TEXT    NOT NULL CHECK (path <> ''),
	  client       TEXT,
	  fields_json  TEXT    NOT NULL CHECK (json_valid(fields_json)),
	  referer      TEXT    NOT NULL DEFAULT '',
	  user_agent   TEXT    NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_captures_ts     ON captures(received_utc);
	CREATE INDEX IF NOT EXISTS idx_captures_path   ON captures(path);
	CREATE INDEX IF NOT EXISTS idx_captures_client ON captures(client);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) ValidateCapture(capture models.Capture) error {
	if strings.TrimSpace(capture.Path) == "" {
		return errors.New("path cannot be empty")
	}
	if capture.ReceivedAt.IsZero() {
		return errors.New("received time must be set")
	}
	if capture.Client != nil && *capture.Client == "" {
		return errors.New("client must be null or non-empty")
	}
	return nil
}

// InsertCaptures stores captures in one transaction. Captures without an ID
// are given a UUIDv7, written back into the slice.
func (d *Database) InsertCaptures(ctx context.Context, captures []models.Capture) error {
	transaction, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	statement, err := transaction.PrepareContext(ctx, `INSERT INTO captures(id, received_utc, received_iso, path, client, fields_json, referer, user_agent) VALUES(?,?,?,?,?,json(?),?,?)`)
	if err != nil {
		_ = transaction.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statement.Close()

	for i := range captures {
		capture := &captures[i]
		if err := d.ValidateCapture(*capture); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("invalid capture: %w", err)
		}
		if capture.ID == "" {
			capture.ID = d.newID()
		}
		if capture.Fields == nil {
			capture.Fields = map[string]string{}
		}

		jsonData, err := json.Marshal(capture.Fields)
		if err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("failed to marshal capture fields: %w", err)
		}
		received := capture.ReceivedAt.UTC()
		if _, err := statement.ExecContext(ctx, capture.ID, received.UnixMilli(), received.Format(time.RFC3339Nano),
			capture.Path, capture.Client, string(jsonData), capture.Referer, capture.UserAgent); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListCaptures returns matching captures, newest first.
func (d *Database) ListCaptures(ctx context.Context, filter CaptureFilter) ([]models.Capture, error) {
	var (
		where []string
		args  []any
	)
	if filter.Client != "" {
		where = append(where, "client = ?")
		args = append(args, filter.Client)
	}
	if filter.Path != "" {
		where = append(where, "path = ?")
		args = append(args, filter.Path)
	}
	if !filter.Since.IsZero() {
		where = append(where, "received_utc >= ?")
		args = append(args, filter.Since.UTC().UnixMilli())
	}

	query := `SELECT id, received_utc, path, client, fields_json, referer, user_agent FROM captures`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY received_utc DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	captures := []models.Capture{}
	for rows.Next() {
		var (
			capture    models.Capture
			receivedMS int64
			client     sql.NullString
			fieldsJSON string
		)
		if err := rows.Scan(&capture.ID, &receivedMS, &capture.Path, &client, &fieldsJSON, &capture.Referer, &capture.UserAgent); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		capture.ReceivedAt = time.UnixMilli(receivedMS).UTC()
		if client.Valid {
			capture.Client = &client.String
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &capture.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal capture fields: %w", err)
		}
		captures = append(captures, capture)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read captures: %w", err)
	}
	return captures, nil
}

// TopPaths returns the most captured paths, optionally for one client.
func (d *Database) TopPaths(ctx context.Context, client string, limit int) ([]models.PathCount, error) {
	query := `SELECT path, COUNT(*) AS n FROM captures`
	var args []any
	if client != "" {
		query += " WHERE client = ?"
		args = append(args, client)
	}
	query += " GROUP BY path ORDER BY n DESC, path ASC LIMIT ?"
	args = append(args, clampLimit(limit))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top paths: %w", err)
	}
	defer rows.Close()

	counts := []models.PathCount{}
	for rows.Next() {
		var pc models.PathCount
		if err := rows.Scan(&pc.Path, &pc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan path count: %w", err)
		}
		counts = append(counts, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read path counts: %w", err)
	}
	return counts, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
