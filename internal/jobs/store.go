package jobs

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/streamsplice/junction/internal/xerrors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the durable SQLite-backed job table (§4.7).
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the jobs database under dataDir and
// runs any pending migrations.
func Open(dataDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dbPath := filepath.Join(dataDir, "jobs.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, &xerrors.StoreError{Op: "open", Err: err}
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &xerrors.StoreError{Op: "enable WAL", Err: err}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &xerrors.StoreError{Op: "migrate", Err: err}
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("read current version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		s.logger.Info("applying migration", "version", version, "file", entry.Name())
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Insert durably creates a job row from j, with the status j carries
// (Submit always passes Queued).
func (s *Store) Insert(j *Job) error {
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, kind, status, progress, stage, error, request_json, result_json, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, string(j.Kind), string(j.Status), j.Progress, j.Stage, j.Error, string(j.Request), nullableJSON(j.Result), j.ContentHash, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return &xerrors.StoreError{Op: "insert job", Err: err}
	}
	return nil
}

// UpdateProgress durably persists a (progress, stage) pair and bumps
// updated_at.
func (s *Store) UpdateProgress(id string, progress float64, stage string) error {
	_, err := s.db.Exec(`UPDATE jobs SET progress = ?, stage = ?, updated_at = ? WHERE id = ?`, progress, stage, time.Now(), id)
	if err != nil {
		return &xerrors.StoreError{Op: "update progress", Err: err}
	}
	return nil
}

// UpdateStatus transitions a job's status, optionally attaching a
// result payload or an error message, and bumps updated_at.
func (s *Store) UpdateStatus(id string, status Status, stage string, result json.RawMessage, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE jobs SET status = ?, stage = ?, result_json = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, string(status), stage, nullableJSON(result), errMsg, time.Now(), id)
	if err != nil {
		return &xerrors.StoreError{Op: "update status", Err: err}
	}
	return nil
}

// Get returns the job with the given id, or (nil, nil) if absent.
func (s *Store) Get(id string) (*Job, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, status, progress, stage, error, request_json, result_json, content_hash, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &xerrors.StoreError{Op: "get job", Err: err}
	}
	return j, nil
}

// ListFilter narrows List's result set; zero values mean unfiltered.
type ListFilter struct {
	Status Status
	Kind   Kind
}

// List returns up to limit jobs matching filter, newest first.
func (s *Store) List(filter ListFilter, limit int) ([]*Job, error) {
	query := `SELECT id, kind, status, progress, stage, error, request_json, result_json, content_hash, created_at, updated_at FROM jobs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &xerrors.StoreError{Op: "list jobs", Err: err}
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, &xerrors.StoreError{Op: "scan job row", Err: err}
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Interrupted returns every job left in Queued or Processing, called
// once at startup before accepting new submissions (§4.8 step 1).
func (s *Store) Interrupted() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, status, progress, stage, error, request_json, result_json, content_hash, created_at, updated_at
		FROM jobs WHERE status IN (?, ?)
	`, string(StatusQueued), string(StatusProcessing))
	if err != nil {
		return nil, &xerrors.StoreError{Op: "list interrupted jobs", Err: err}
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, &xerrors.StoreError{Op: "scan interrupted job", Err: err}
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Reap deletes terminal jobs older than the retention window.
func (s *Store) Reap(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.Exec(`
		DELETE FROM jobs WHERE status IN (?, ?) AND created_at < ?
	`, string(StatusCompleted), string(StatusFailed), cutoff)
	if err != nil {
		return 0, &xerrors.StoreError{Op: "reap jobs", Err: err}
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	j := &Job{}
	var kind, status, requestJSON string
	var resultJSON sql.NullString
	var createdAt, updatedAt time.Time

	if err := row.Scan(&j.ID, &kind, &status, &j.Progress, &j.Stage, &j.Error, &requestJSON, &resultJSON, &j.ContentHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	j.Kind = Kind(kind)
	j.Status = Status(status)
	j.Request = json.RawMessage(requestJSON)
	if resultJSON.Valid {
		j.Result = json.RawMessage(resultJSON.String)
	}
	j.CreatedAt = createdAt
	j.UpdatedAt = updatedAt
	return j, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
