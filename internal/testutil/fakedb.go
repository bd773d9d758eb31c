// Package testutil provides in-memory fakes for the database contract,
// used by catalog, analyzer, and server tests.
package testutil

import (
	"context"
	"fmt"

	"github.com/koustreak/pgscope/internal/database"
)

// FakeDB implements database.DB with canned results. QueryFn receives the
// SQL text and arguments of every Query call and returns the rows to
// serve; tests switch on query substrings.
type FakeDB struct {
	BackendKind database.Backend
	Tables      []string
	QueryFn     func(sql string, args ...any) ([][]any, error)

	// Queries records every SQL statement issued, for assertions on
	// acquisition strategy.
	Queries []string
}

// Backend returns the configured backend kind, defaulting to postgres.
func (f *FakeDB) Backend() database.Backend {
	if f.BackendKind == "" {
		return database.BackendPostgres
	}
	return f.BackendKind
}

func (f *FakeDB) Ping(context.Context) error { return nil }
func (f *FakeDB) Close()                     {}

func (f *FakeDB) Query(_ context.Context, sql string, args ...any) (database.Rows, error) {
	f.Queries = append(f.Queries, sql)
	if f.QueryFn == nil {
		return &FakeRows{}, nil
	}
	rows, err := f.QueryFn(sql, args...)
	if err != nil {
		return nil, err
	}
	return &FakeRows{rows: rows}, nil
}

func (f *FakeDB) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	rows, err := f.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &fakeRow{rows: rows.(*FakeRows)}, nil
}

func (f *FakeDB) ListTables(context.Context) ([]string, error) {
	return append([]string{}, f.Tables...), nil
}

func (f *FakeDB) TableExists(_ context.Context, table string) (bool, error) {
	for _, t := range f.Tables {
		if t == table {
			return true, nil
		}
	}
	return false, nil
}

// FakeRows implements database.Rows over a slice of value rows.
type FakeRows struct {
	rows [][]any
	pos  int
}

func (r *FakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *FakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeRows) Close()     {}
func (r *FakeRows) Err() error { return nil }

type fakeRow struct {
	rows *FakeRows
}

func (r *fakeRow) Scan(dest ...any) error {
	if !r.rows.Next() {
		return fmt.Errorf("no rows")
	}
	return r.rows.Scan(dest...)
}

func assign(dest, src any) error {
	switch d := dest.(type) {
	case *string:
		v, ok := src.(string)
		if !ok {
			return fmt.Errorf("assign: want string, got %T", src)
		}
		*d = v
	case *bool:
		v, ok := src.(bool)
		if !ok {
			return fmt.Errorf("assign: want bool, got %T", src)
		}
		*d = v
	case *int:
		v, ok := src.(int)
		if !ok {
			return fmt.Errorf("assign: want int, got %T", src)
		}
		*d = v
	case *float64:
		v, ok := src.(float64)
		if !ok {
			return fmt.Errorf("assign: want float64, got %T", src)
		}
		*d = v
	case *[]string:
		v, ok := src.([]string)
		if !ok {
			return fmt.Errorf("assign: want []string, got %T", src)
		}
		*d = append([]string{}, v...)
	case *any:
		*d = src
	default:
		return fmt.Errorf("assign: unsupported destination %T", dest)
	}
	return nil
}
