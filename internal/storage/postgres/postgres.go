// Package postgres opens a PostgreSQL-backed storage.Storage using
// github.com/lib/pq. Queries are shared with SQLite through package sqldb;
// only the placeholder style and the error codes differ.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/aanand-mishra/institute-api/internal/config"
	"github.com/aanand-mishra/institute-api/internal/storage/migrations"
	"github.com/aanand-mishra/institute-api/internal/storage/sqldb"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

var Dialect = sqldb.Dialect{
	Name:                  "postgres",
	NumberedParams:        true,
	IsUniqueViolation:     func(err error) bool { return hasCode(err, codeUniqueViolation) },
	IsForeignKeyViolation: func(err error) bool { return hasCode(err, codeForeignKeyViolation) },
}

// New connects to PostgreSQL, pings, runs migrations and returns the store.
func New(cfg *config.Config) (*sqldb.Store, error) {
	db, err := sql.Open("postgres", cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	if err := migrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres.New: %w", err)
	}

	return sqldb.NewStore(sqldb.New(db, Dialect)), nil
}

// migrateUp runs the migrations on a dedicated connection. The driver is
// built with WithConnection rather than WithInstance so that closing the
// migrator releases only that connection and leaves the pool open.
func migrateUp(ctx context.Context, db *sql.DB) (err error) {
	src, err := iofs.New(migrations.FS, "postgres")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migrations conn: %w", err)
	}
	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("migrations driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
