// Package sqlite opens a SQLite-backed storage.Storage.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. It is the default for local development and for the tests.
//
// The queries themselves live in package sqldb and are shared with the
// PostgreSQL backend; this package only knows how to open the file, run
// the embedded migrations, and recognise SQLite constraint errors.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/institute-api/internal/config"
	"github.com/aanand-mishra/institute-api/internal/storage/migrations"
	"github.com/aanand-mishra/institute-api/internal/storage/sqldb"
)

// Dialect recognises SQLite constraint violations by extended result code.
var Dialect = sqldb.Dialect{
	Name:                  "sqlite3",
	IsUniqueViolation:     isUniqueViolation,
	IsForeignKeyViolation: isForeignKeyViolation,
}

// New opens the SQLite database at cfg.Storage.DSN, migrates it to the
// latest schema and returns a ready-to-use store.
//
// Foreign keys are off by default in SQLite; cascading deletes (user →
// student, course → types, user → sessions) depend on them, so they are
// switched on for every connection through the DSN.
func New(cfg *config.Config) (*sqldb.Store, error) {
	path := cfg.Storage.DSN
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", withPragmas(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}

	return sqldb.NewStore(sqldb.New(db, Dialect)), nil
}

// withPragmas appends the connection options go-sqlite3 understands:
// foreign keys on, wait up to 5s for a lock, and take the write lock at
// BEGIN so concurrent transactions queue instead of failing mid-way.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrations driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	// m.Close is not called: it would close db, which the store keeps.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
