package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
)

// DefaultLimit is the number of records Recent returns for a non-positive limit.
const DefaultLimit = 20

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the database at dbPath, creating parent
// directories as needed. Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "create history directory").
				WithContext("path", dbPath).
				Build()
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "open sqlite database").
			WithContext("path", dbPath).
			Build()
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "initialize history schema").
			WithContext("path", dbPath).
			Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS compiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		target TEXT NOT NULL,
		program TEXT,
		strategy TEXT,
		succeeded INTEGER NOT NULL,
		failure TEXT,
		exit_status INTEGER NOT NULL,
		diagnostics TEXT,
		pdf_path TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_compiles_target ON compiles(target);
	CREATE INDEX IF NOT EXISTS idx_compiles_started_at ON compiles(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var diagnostics []byte
	if len(rec.Diagnostics) > 0 {
		var err error
		diagnostics, err = json.Marshal(rec.Diagnostics)
		if err != nil {
			return fmt.Errorf("marshal diagnostics: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO compiles (run_id, target, program, strategy, succeeded, failure, exit_status, diagnostics, pdf_path, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Target, rec.Program, rec.Strategy, rec.Succeeded, rec.Failure, rec.ExitStatus,
		string(diagnostics), rec.PDFPath, rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "insert compile record").
			WithContext("run_id", rec.RunID).
			Build()
	}
	return nil
}

// Recent implements Store, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, target, program, strategy, succeeded, failure, exit_status, diagnostics, pdf_path, started_at, duration_ms
		 FROM compiles ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "query compile records").Build()
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec                   Record
			program, strategy     sql.NullString
			failure, diagnostics  sql.NullString
			pdfPath               sql.NullString
			startedMS, durationMS int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Target, &program, &strategy, &rec.Succeeded, &failure,
			&rec.ExitStatus, &diagnostics, &pdfPath, &startedMS, &durationMS); err != nil {
			return nil, fmt.Errorf("scan compile record: %w", err)
		}
		rec.Program = program.String
		rec.Strategy = strategy.String
		rec.Failure = failure.String
		rec.PDFPath = pdfPath.String
		rec.StartedAt = time.UnixMilli(startedMS)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if diagnostics.String != "" {
			if err := json.Unmarshal([]byte(diagnostics.String), &rec.Diagnostics); err != nil {
				return nil, fmt.Errorf("unmarshal diagnostics: %w", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
