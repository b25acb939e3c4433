/*
Package sqlite provides the SQLite-backed file store behind the engine's
FileSource and ProfileSource interfaces.

PURPOSE:
  Keeps every uploaded spreadsheet per (user, template type) with exactly one
  active row at a time. Storing a new file deactivates the previous active one
  in the same transaction, so GetLatest always sees a single source of truth
  and old uploads remain for audit.

KEY TABLES:
  user_files:    Uploaded CSV documents, one active per (user, template)
  user_profiles: Declared industry and currency per user

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

USAGE:
  files, err := sqlite.New("./data/finlens.db")
  if err != nil {
      log.Fatal(err)
  }
  defer files.Close()

  engine := analysis.NewEngine(files, store.NewMemory())
  engine.Profiles = files

SEE ALSO:
  - analysis/types.go: FileSource and ProfileSource contracts
*/
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/finlens/metrics-engine/analysis"
)

// Store implements analysis.FileSource and analysis.ProfileSource on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// FileRecord describes one stored upload.
type FileRecord struct {
	ID         string
	User       analysis.UserID
	Template   analysis.TemplateType
	Filename   string
	Active     bool
	UploadedAt time.Time
}

// New opens (or creates) the store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_files (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		template_type     TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		content           BLOB NOT NULL,
		is_active         INTEGER NOT NULL DEFAULT 1,
		uploaded_at       TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_files_lookup
		ON user_files(user_id, template_type, is_active, uploaded_at);

	CREATE TABLE IF NOT EXISTS user_profiles (
		user_id    TEXT PRIMARY KEY,
		industry   TEXT NOT NULL DEFAULT '',
		currency   TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// =============================================================================
// FILE STORAGE
// =============================================================================

// SaveFile stores a new upload and makes it the active row-set for the
// (user, template) pair. The previously active file is deactivated in the
// same transaction.
func (s *Store) SaveFile(ctx context.Context, user analysis.UserID, template analysis.TemplateType, filename string, content []byte) (FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := FileRecord{
		ID:         uuid.NewString(),
		User:       user,
		Template:   template,
		Filename:   filename,
		Active:     true,
		UploadedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return FileRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_files SET is_active = 0 WHERE user_id = ? AND template_type = ? AND is_active = 1`,
		string(user), string(template),
	); err != nil {
		return FileRecord{}, fmt.Errorf("failed to deactivate existing file: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_files (id, user_id, template_type, original_filename, content, is_active, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		record.ID, string(user), string(template), filename, content, record.UploadedAt,
	); err != nil {
		return FileRecord{}, fmt.Errorf("failed to store file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return FileRecord{}, fmt.Errorf("failed to commit file upload: %w", err)
	}
	return record, nil
}

// GetLatest returns the active row-set for the (user, template) pair, parsed
// from the stored CSV. Returns a NoDataError when the user has never uploaded
// one.
func (s *Store) GetLatest(ctx context.Context, user analysis.UserID, template analysis.TemplateType) (analysis.RowSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM user_files
		 WHERE user_id = ? AND template_type = ? AND is_active = 1
		 ORDER BY uploaded_at DESC LIMIT 1`,
		string(user), string(template),
	).Scan(&content)
	if err == sql.ErrNoRows {
		return analysis.RowSet{}, &analysis.NoDataError{User: user, Template: template}
	}
	if err != nil {
		return analysis.RowSet{}, fmt.Errorf("failed to load file: %w", err)
	}

	return analysis.RowSetFromCSV(template, bytes.NewReader(content))
}

// ListFiles returns the upload history for a user, newest first.
func (s *Store) ListFiles(ctx context.Context, user analysis.UserID) ([]FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, template_type, original_filename, is_active, uploaded_at
		 FROM user_files WHERE user_id = ? ORDER BY uploaded_at DESC`,
		string(user),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []FileRecord
	for rows.Next() {
		var r FileRecord
		var userID, template string
		if err := rows.Scan(&r.ID, &userID, &template, &r.Filename, &r.Active, &r.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		r.User = analysis.UserID(userID)
		r.Template = analysis.TemplateType(template)
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// USER PROFILES
// =============================================================================

// SetProfile stores or replaces a user's declared industry and currency.
func (s *Store) SetProfile(ctx context.Context, user analysis.UserID, profile analysis.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, industry, currency, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			industry = excluded.industry,
			currency = excluded.currency,
			updated_at = excluded.updated_at`,
		string(user), profile.Industry, profile.Currency, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

// Profile returns the user's stored profile; false when none exists.
func (s *Store) Profile(ctx context.Context, user analysis.UserID) (analysis.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p analysis.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT industry, currency FROM user_profiles WHERE user_id = ?`,
		string(user),
	).Scan(&p.Industry, &p.Currency)
	if err == sql.ErrNoRows {
		return analysis.Profile{}, false, nil
	}
	if err != nil {
		return analysis.Profile{}, false, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, true, nil
}
