// Package mysql implements database.DB over database/sql.
//
// pgscope does not analyze MySQL indexes — the analyzer raises an
// unsupported-backend error when handed this driver. The driver exists so
// that operators pointing pgscope at the wrong DSN get a clear precondition
// failure instead of a cryptic catalog-query error.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/pgscope/internal/database"
	"github.com/koustreak/pgscope/internal/errs"
)

// Driver is the database/sql-backed MySQL driver. Safe for concurrent use.
type Driver struct {
	db *sql.DB
}

// New opens a connection pool from cfg and verifies it with a ping.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// Backend identifies the engine for the analyzer's precondition check.
func (d *Driver) Backend() database.Backend {
	return database.BackendMySQL
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return toError(err, "ping")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, toError(err, "query")
	}
	return rowsAdapter{rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) (database.Row, error) {
	return rowAdapter{d.db.QueryRowContext(ctx, query, args...)}, nil
}

// ListTables names every base table in the connection's default database.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := d.db.QueryContext(ctx, q)
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

func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type   = 'BASE TABLE'
		  AND table_name   = ?`

	var one int
	if err := d.db.QueryRowContext(ctx, q, table).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, toError(err, "check table existence")
	}
	return true, nil
}

type rowsAdapter struct {
	rows *sql.Rows
}

func (r rowsAdapter) Next() bool             { return r.rows.Next() }
func (r rowsAdapter) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r rowsAdapter) Close()                 { _ = r.rows.Close() }
func (r rowsAdapter) Err() error             { return r.rows.Err() }

type rowAdapter struct {
	row *sql.Row
}

func (r rowAdapter) Scan(dest ...any) error { return r.row.Scan(dest...) }

// toError translates go-sql-driver failures into the unified error type.
func toError(err error, op string) *errs.Error {
	var myErr *gomysql.MySQLError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.Wrap(errs.ErrKindTimeout, op, err)
	case errors.Is(err, sql.ErrNoRows):
		return errs.Wrap(errs.ErrKindNotFound, op, err)
	case errors.As(err, &myErr):
		return errs.Wrap(errs.ErrKindQueryFailed, op, err)
	default:
		return errs.Wrap(errs.ErrKindConnectionFailed, op, err)
	}
}
