// Package sqldb implements the storage interfaces on top of database/sql.
//
// One implementation serves every supported database. The differences
// between drivers are captured by a Dialect:
//
//   - placeholder style: queries are written with "?" and rebound to
//     "$1, $2, ..." for drivers that need numbered parameters;
//   - error inspection: each driver reports constraint violations with
//     its own error type, so the Dialect knows how to recognise them.
//
// Every multi-statement write goes through WithTx, which owns the
// begin/commit/rollback cycle and always releases the connection.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aanand-mishra/institute-api/internal/storage"
)

// Dialect describes a database driver.
type Dialect struct {
	Name string

	// NumberedParams turns "?" placeholders into "$1, $2, ...".
	NumberedParams bool

	IsUniqueViolation     func(error) bool
	IsForeignKeyViolation func(error) bool
}

// DB wraps a *sql.DB (a goroutine-safe connection pool) with its Dialect.
type DB struct {
	sql     *sql.DB
	dialect Dialect
}

// New wraps an already opened and migrated pool.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{sql: db, dialect: dialect}
}

// Querier is satisfied by both *DB and *Tx so that store functions can run
// inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, d.Rebind(query), args...)
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, d.Rebind(query), args...)
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, d.Rebind(query), args...)
}

func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.sql.Close()
}

// Rebind rewrites "?" placeholders for the dialect. Queries in this
// package never contain a literal question mark.
func (d *DB) Rebind(query string) string {
	if !d.dialect.NumberedParams || !strings.Contains(query, "?") {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Tx is one transaction bound to one pooled connection.
type Tx struct {
	tx *sql.Tx
	db *DB
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.db.Rebind(query), args...)
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.db.Rebind(query), args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.db.Rebind(query), args...)
}

// WithTx runs fn in a transaction. The transaction commits only if fn
// returns nil; any error or panic rolls it back. Either way the
// connection goes back to the pool before WithTx returns.
func (d *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
			}
		}
	}()

	if err = fn(&Tx{tx: sqlTx, db: d}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// translate wraps a driver error with the storage sentinel it stands for,
// keeping the driver detail for the logs.
func (d *DB) translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case d.dialect.IsUniqueViolation != nil && d.dialect.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", op, storage.ErrConflict, err)
	case d.dialect.IsForeignKeyViolation != nil && d.dialect.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidReference, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// rowScanner is the common part of *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func setClause(columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + " = ?"
	}
	return strings.Join(parts, ", ")
}
