package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"savekeep/internal/database/migrations"
	"savekeep/internal/sk"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements sk.Database using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path (or ":memory:") and applies
// pending migrations.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// An in-memory database is limited to one connection, since every new
// connection to ":memory:" would see a different, empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}
	return db, nil
}

// Restoration marks

func (s *SQLiteDatabase) FindRestorationMark(profileID string) (*sk.RestorationMark, error) {
	var m sk.RestorationMark
	err := s.db.QueryRow(
		`SELECT profile_id, restored_snapshot_id, restored_at FROM restoration_marks WHERE profile_id = ?`,
		profileID,
	).Scan(&m.ProfileID, &m.RestoredSnapshotID, &m.RestoredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding restoration mark: %w", err)
	}
	return &m, nil
}

func (s *SQLiteDatabase) UpsertRestorationMark(mark *sk.RestorationMark) error {
	_, err := s.db.Exec(`
		INSERT INTO restoration_marks (profile_id, restored_snapshot_id, restored_at)
		VALUES (?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			restored_snapshot_id = excluded.restored_snapshot_id,
			restored_at = excluded.restored_at`,
		mark.ProfileID, mark.RestoredSnapshotID, mark.RestoredAt,
	)
	if err != nil {
		return fmt.Errorf("upserting restoration mark: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListRestorationMarks() ([]*sk.RestorationMark, error) {
	rows, err := s.db.Query(`SELECT profile_id, restored_snapshot_id, restored_at FROM restoration_marks ORDER BY profile_id`)
	if err != nil {
		return nil, fmt.Errorf("listing restoration marks: %w", err)
	}
	defer rows.Close()

	var marks []*sk.RestorationMark
	for rows.Next() {
		var m sk.RestorationMark
		if err := rows.Scan(&m.ProfileID, &m.RestoredSnapshotID, &m.RestoredAt); err != nil {
			return nil, fmt.Errorf("scanning restoration mark: %w", err)
		}
		marks = append(marks, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing restoration marks: %w", err)
	}
	return marks, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation, parameters string) (*sk.Operation, error) {
	startedAt := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO operations (started_at, operation, parameters, status) VALUES (?, ?, ?, 'running')`,
		startedAt, operation, parameters,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &sk.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     "running",
	}, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	res, err := s.db.Exec(
		`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC(), status, id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*sk.Operation, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, operation, parameters, status
		 FROM operations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*sk.Operation
	for rows.Next() {
		var op sk.Operation
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.StartedAt, &finished, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a consistent copy of the database to destPath using
// VACUUM INTO. destPath must not exist.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements sk.Database interface
var _ sk.Database = (*SQLiteDatabase)(nil)
