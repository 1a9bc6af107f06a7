package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aanand-mishra/institute-api/internal/storage"
)

// Table is the generic storage.Resource: every statement is built from
// the Schema, and rows are read back with scan in Schema.Columns order.
type Table[T any] struct {
	db     *DB
	schema *storage.Schema
	scan   func(rowScanner) (T, error)
	cols   string
}

// NewTable binds a schema to its row scanner.
func NewTable[T any](db *DB, schema *storage.Schema, scan func(rowScanner) (T, error)) *Table[T] {
	return &Table[T]{
		db:     db,
		schema: schema,
		scan:   scan,
		cols:   strings.Join(schema.Columns(), ", "),
	}
}

func (t *Table[T]) Schema() *storage.Schema {
	return t.schema
}

func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	op := "list " + t.schema.Table
	rows, err := t.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", t.cols, t.schema.Table, t.schema.Key))
	if err != nil {
		return nil, t.db.translate(op, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration: %w", op, err)
	}
	return out, nil
}

func (t *Table[T]) Get(ctx context.Context, id int64) (T, error) {
	row := t.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", t.cols, t.schema.Table, t.schema.Key), id)
	return t.one("get "+t.schema.Table, row)
}

func (t *Table[T]) Create(ctx context.Context, values storage.Values) (T, error) {
	op := "create " + t.schema.Table
	if values.Empty() {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, storage.NewValidationError("no fields to insert"))
	}
	row := t.db.QueryRow(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			t.schema.Table, strings.Join(values.Columns, ", "), placeholders(len(values.Columns)), t.cols),
		values.Args...)
	return t.one(op, row)
}

func (t *Table[T]) Update(ctx context.Context, id int64, values storage.Values) (T, error) {
	op := "update " + t.schema.Table
	if values.Empty() {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, storage.NewValidationError("no valid fields provided for update"))
	}
	args := append(append([]any{}, values.Args...), id)
	row := t.db.QueryRow(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? RETURNING %s",
			t.schema.Table, setClause(values.Columns), t.schema.Key, t.cols),
		args...)
	return t.one(op, row)
}

func (t *Table[T]) Delete(ctx context.Context, id int64) (T, error) {
	row := t.db.QueryRow(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ? RETURNING %s", t.schema.Table, t.schema.Key, t.cols), id)
	return t.one("delete "+t.schema.Table, row)
}

func (t *Table[T]) one(op string, row rowScanner) (T, error) {
	item, err := t.scan(row)
	if err != nil {
		var zero T
		return zero, t.db.translate(op, err)
	}
	return item, nil
}
