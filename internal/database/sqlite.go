package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"exifrec-go/internal/database/migrations"
	"exifrec-go/internal/database/sqlc"
	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/media"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultMaxWriteBackAttempts is how often a write-back may fail before the
// file is marked failed.
const DefaultMaxWriteBackAttempts = 3

// Options tune reconciliation behaviour of the store.
type Options struct {
	// Tables maps kinds to tags when write-back items are computed.
	Tables media.Tables

	// MaxWriteBackAttempts defaults to DefaultMaxWriteBackAttempts.
	MaxWriteBackAttempts int

	// MatchMoved lets an import at an unknown path take over the identity of
	// a file with the same content whose old path no longer exists.
	MatchMoved bool

	// Exists reports whether a path is still present. Defaults to os.Stat.
	Exists func(path string) bool
}

// SQLiteDatabase implements exifrec.Store on SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   exifrec.Clock
	idgen   exifrec.IDGenerator
	opts    Options
	locks   *keyMutex
}

// NewSQLiteDatabase opens the database at path, or an in-memory database
// for ":memory:". A nil clock or idgen falls back to the real ones.
func NewSQLiteDatabase(path string, clock exifrec.Clock, idgen exifrec.IDGenerator, opts Options) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	s := NewSQLiteDatabaseFromDB(db, clock, idgen, opts)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock exifrec.Clock, idgen exifrec.IDGenerator, opts Options) *SQLiteDatabase {
	if clock == nil {
		clock = exifrec.RealClock{}
	}
	if idgen == nil {
		idgen = exifrec.UUIDGenerator{}
	}
	if opts.Tables == nil {
		opts.Tables = media.DefaultTagTables()
	}
	if opts.MaxWriteBackAttempts <= 0 {
		opts.MaxWriteBackAttempts = DefaultMaxWriteBackAttempts
	}
	if opts.Exists == nil {
		opts.Exists = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
		idgen:   idgen,
		opts:    opts,
		locks:   newKeyMutex(),
	}
}

// OpenConnection opens and configures a SQLite connection.
// Exported for tools and tests that need the same configuration.
// Transactions on file databases take the write lock when they begin, so
// two processes committing the same file serialize instead of deadlocking.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every new connection would see a different empty database.
		db.SetMaxOpenConns(1)
	}

	// SQLite leaves foreign keys off by default.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// FindIdentity returns the stored state of path, nil when untracked.
func (s *SQLiteDatabase) FindIdentity(ctx context.Context, path string) (*exifrec.IdentityRecord, error) {
	row, err := s.queries.GetIdentityByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding identity by path: %w", err)
	}
	return identityRecord(row), nil
}

// Operations log

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string) (int64, error) {
	op, err := s.queries.InsertOperation(ctx, sqlc.InsertOperationParams{
		StartedAt:  s.clock.Now(),
		Operation:  operation,
		Parameters: parameters,
	})
	if err != nil {
		return 0, fmt.Errorf("creating operation: %w", err)
	}
	return op.ID, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	err := s.queries.UpdateOperationFinished(ctx, sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: s.clock.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]exifrec.OperationRecord, error) {
	ops, err := s.queries.GetOperations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]exifrec.OperationRecord, len(ops))
	for i, op := range ops {
		result[i] = exifrec.OperationRecord{
			ID:         op.ID,
			StartedAt:  op.StartedAt,
			FinishedAt: nullTime(op.FinishedAt),
			Operation:  op.Operation,
			Parameters: op.Parameters,
			Status:     op.Status,
		}
	}
	return result, nil
}

func (s *SQLiteDatabase) MaxOperationID(ctx context.Context) (int64, error) {
	id, err := s.queries.GetMaxOperationID(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrateUp brings the schema to the latest version.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a consistent copy of the database to destPath.
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

func nullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

