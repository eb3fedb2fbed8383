package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Query is a statement bound to its arguments, ready for ExecuteQuery.
type Query[T any] func(ctx context.Context, db *sqlx.DB) (T, error)

func checkIdent(kind, s string) error {
	if !identifier.MatchString(s) {
		return fmt.Errorf("invalid %s name %q", kind, s)
	}
	return nil
}

// namedValues returns the sorted columns and their sql.Named arguments.
func namedValues(values map[string]any) ([]string, []any, error) {
	cols := make([]string, 0, len(values))
	for k := range values {
		if err := checkIdent("column", k); err != nil {
			return nil, nil, err
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = sql.Named(c, values[c])
	}
	return cols, args, nil
}

// Select reads rows into T using sqlx column mapping. No columns means "*".
func Select[T any](table string, columns []string, where string, args ...any) Query[[]T] {
	return func(ctx context.Context, db *sqlx.DB) ([]T, error) {
		if err := checkIdent("table", table); err != nil {
			return nil, err
		}
		cols := "*"
		if len(columns) > 0 {
			for _, c := range columns {
				if err := checkIdent("column", c); err != nil {
					return nil, err
				}
			}
			cols = strings.Join(columns, ", ")
		}
		query := fmt.Sprintf("SELECT %s FROM %s", cols, table)
		if where != "" {
			query += " WHERE " + where
		}
		var out []T
		if err := db.SelectContext(ctx, &out, query, args...); err != nil {
			return nil, fmt.Errorf("select %s: %w", table, err)
		}
		return out, nil
	}
}

// Insert adds one row and returns the affected row count.
func Insert(table string, values map[string]any) Query[int64] {
	return func(ctx context.Context, db *sqlx.DB) (int64, error) {
		if err := checkIdent("table", table); err != nil {
			return 0, err
		}
		if len(values) == 0 {
			return 0, errors.New("no insert values have been provided")
		}
		cols, args, err := namedValues(values)
		if err != nil {
			return 0, err
		}
		params := make([]string, len(cols))
		for i, c := range cols {
			params[i] = "@" + c
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(params, ", "))
		return exec(ctx, db, query, args)
	}
}

// Update sets values on the rows matching where.
func Update(table string, values map[string]any, where string, whereArgs ...any) Query[int64] {
	return func(ctx context.Context, db *sqlx.DB) (int64, error) {
		if err := checkIdent("table", table); err != nil {
			return 0, err
		}
		if len(values) == 0 {
			return 0, errors.New("no update values have been provided")
		}
		cols, args, err := namedValues(values)
		if err != nil {
			return 0, err
		}
		set := make([]string, len(cols))
		for i, c := range cols {
			set[i] = c + " = @" + c
		}
		query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(set, ", "))
		if where != "" {
			query += " WHERE " + where
		}
		return exec(ctx, db, query, append(args, whereArgs...))
	}
}

// Delete removes the rows matching where. An empty where clause is refused.
func Delete(table string, where string, args ...any) Query[int64] {
	return func(ctx context.Context, db *sqlx.DB) (int64, error) {
		if err := checkIdent("table", table); err != nil {
			return 0, err
		}
		if strings.TrimSpace(where) == "" {
			return 0, errors.New("WHERE clause is required for DELETE to prevent full table deletion")
		}
		return exec(ctx, db, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), args)
	}
}

func exec(ctx context.Context, db *sqlx.DB, query string, args []any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec %q: %w", query, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Ping checks that the server answers a trivial query.
func Ping() Query[int] {
	return func(ctx context.Context, db *sqlx.DB) (int, error) {
		var one int
		if err := db.GetContext(ctx, &one, "SELECT 1"); err != nil {
			return 0, fmt.Errorf("ping: %w", err)
		}
		return one, nil
	}
}
