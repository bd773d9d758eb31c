// Package postgres implements database.DB on top of a pgxpool connection
// pool. This is the only backend the analyzer accepts; the driver also
// serves the catalog queries the reader issues.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/pgscope/internal/database"
	"github.com/koustreak/pgscope/internal/errs"
)

// Driver is the pgxpool-backed database.DB. Safe for concurrent use.
type Driver struct {
	pool *pgxpool.Pool
}

// New opens a pool from cfg and verifies it with a ping before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "open connection pool", err)
	}

	d := &Driver{pool: pool}
	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return d, nil
}

// Backend identifies the engine for the analyzer's precondition check.
func (d *Driver) Backend() database.Backend {
	return database.BackendPostgres
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return toError(err, "ping")
	}
	return nil
}

// Close drains the pool.
func (d *Driver) Close() {
	d.pool.Close()
}

func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, toError(err, "query")
	}
	return rowsAdapter{rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	return rowAdapter{d.pool.QueryRow(ctx, sql, args...)}, nil
}

// ListTables names every base table in the current schema, sorted.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := d.pool.Query(ctx, q)
	if err != nil {
		return nil, toError(err, "list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, toError(err, "scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, toError(err, "iterate tables")
	}
	return tables, nil
}

// TableExists reports whether table is a base table in the current schema.
func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type   = 'BASE TABLE'
		  AND table_name   = $1`

	var one int
	if err := d.pool.QueryRow(ctx, q, table).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, toError(err, "check table existence")
	}
	return true, nil
}

// rowsAdapter satisfies database.Rows directly through pgx.Rows.
type rowsAdapter struct {
	pgx.Rows
}

type rowAdapter struct {
	row pgx.Row
}

func (r rowAdapter) Scan(dest ...any) error { return r.row.Scan(dest...) }

// toError translates pgx and pgconn failures into the unified error type.
// SQLSTATE class 08 is a connection failure; other server errors are query
// failures carrying the server message.
func toError(err error, op string) *errs.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.Wrap(errs.ErrKindTimeout, op, err)
	case errors.Is(err, pgx.ErrNoRows):
		return errs.Wrap(errs.ErrKindNotFound, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		if strings.HasPrefix(pgErr.Code, "08") {
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", op, pgErr.Message), err)
	}

	// Network, TLS, and auth failures surface here.
	return errs.Wrap(errs.ErrKindConnectionFailed, op, err)
}
