// Package catalog reads index metadata from the PostgreSQL system catalog
// and merges it with generic schema reflection into IndexDescriptors.
package catalog

import (
	"context"
	"fmt"

	"github.com/koustreak/pgscope/internal/database"
	"github.com/koustreak/pgscope/internal/errs"
	"github.com/koustreak/pgscope/internal/logger"
	"github.com/koustreak/pgscope/internal/predicate"
)

// nativeQuery fetches native metadata for every secondary index of a table.
// Primary-key indexes are excluded; they are covered by the ORM's own
// finders, not by generated scopes.
const nativeQuery = `
	SELECT c.relname,
	       pg_get_indexdef(i.indexrelid),
	       am.amname,
	       i.indisunique,
	       COALESCE(pg_get_expr(i.indpred, i.indrelid, true), '')
	FROM pg_index i
	JOIN pg_class c      ON c.oid  = i.indexrelid
	JOIN pg_class t      ON t.oid  = i.indrelid
	JOIN pg_am am        ON am.oid = c.relam
	JOIN pg_namespace ns ON ns.oid = t.relnamespace
	WHERE t.relname  = $1
	  AND ns.nspname = current_schema()
	  AND NOT i.indisprimary
	ORDER BY c.relname`

// nativeOneQuery fetches native metadata for a single index by exact name.
const nativeOneQuery = `
	SELECT c.relname,
	       pg_get_indexdef(i.indexrelid),
	       am.amname,
	       i.indisunique,
	       COALESCE(pg_get_expr(i.indpred, i.indrelid, true), '')
	FROM pg_index i
	JOIN pg_class c      ON c.oid  = i.indexrelid
	JOIN pg_class t      ON t.oid  = i.indrelid
	JOIN pg_am am        ON am.oid = c.relam
	JOIN pg_namespace ns ON ns.oid = t.relnamespace
	WHERE t.relname  = $1
	  AND c.relname  = $2
	  AND ns.nspname = current_schema()
	  AND NOT i.indisprimary`

// Reader fetches native index metadata and merges it with generic
// reflection output. Construction fails when the connection is not
// PostgreSQL — this is a hard precondition, checked once, never retried.
type Reader struct {
	db  database.DB
	log *logger.Logger
}

// NewReader validates the backend and returns a Reader.
func NewReader(db database.DB, log *logger.Logger) (*Reader, error) {
	if db.Backend() != database.BackendPostgres {
		return nil, errs.UnsupportedBackend(string(db.Backend()))
	}
	if log == nil {
		log = logger.New(nil)
	}
	return &Reader{db: db, log: log}, nil
}

// Native bulk-fetches all native index rows for a table, keyed by index name.
func (r *Reader) Native(ctx context.Context, table string) (map[string]NativeIndex, error) {
	rows, err := r.db.Query(ctx, nativeQuery, table)
	if err != nil {
		return nil, fmt.Errorf("fetch native indexes for %s: %w", table, err)
	}
	defer rows.Close()

	native := map[string]NativeIndex{}
	for rows.Next() {
		var n NativeIndex
		if err := rows.Scan(&n.Name, &n.Definition, &n.AccessMethod, &n.Unique, &n.Predicate); err != nil {
			return nil, fmt.Errorf("scan native index: %w", err)
		}
		native[n.Name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate native indexes: %w", err)
	}
	return native, nil
}

// NativeOne fetches native metadata for a single index by exact name.
// Returns a not-found error when the catalog has no such index.
func (r *Reader) NativeOne(ctx context.Context, table, index string) (*NativeIndex, error) {
	rows, err := r.db.Query(ctx, nativeOneQuery, table, index)
	if err != nil {
		return nil, fmt.Errorf("fetch native index %s: %w", index, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("fetch native index %s: %w", index, err)
		}
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("index %q not found on table %q", index, table))
	}

	var n NativeIndex
	if err := rows.Scan(&n.Name, &n.Definition, &n.AccessMethod, &n.Unique, &n.Predicate); err != nil {
		return nil, fmt.Errorf("scan native index: %w", err)
	}
	return &n, nil
}

// ColumnTypes returns the declared data type of every column on the table.
func (r *Reader) ColumnTypes(ctx context.Context, table string) (map[string]string, error) {
	const q = `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name   = $1`

	rows, err := r.db.Query(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("fetch column types for %s: %w", table, err)
	}
	defer rows.Close()

	types := map[string]string{}
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("scan column type: %w", err)
		}
		types[name] = dataType
	}
	return types, rows.Err()
}

// Read merges generic reflection output with bulk-fetched native rows into
// the final IndexDescriptors for a table.
func (r *Reader) Read(ctx context.Context, table string, generic []GenericIndex) ([]IndexDescriptor, error) {
	native, err := r.Native(ctx, table)
	if err != nil {
		return nil, err
	}
	types, err := r.ColumnTypes(ctx, table)
	if err != nil {
		return nil, err
	}

	descs := make([]IndexDescriptor, 0, len(generic))
	for _, g := range generic {
		descs = append(descs, merge(table, g, native[g.Name], types))
	}
	return descs, nil
}

// ReadIncremental produces the same descriptors as Read but fetches native
// metadata one index at a time. Used when a cached generic list is already
// available and only the native extras are missing. The two strategies are
// functionally interchangeable; choosing one is an optimization only.
func (r *Reader) ReadIncremental(ctx context.Context, table string, generic []GenericIndex) ([]IndexDescriptor, error) {
	types, err := r.ColumnTypes(ctx, table)
	if err != nil {
		return nil, err
	}

	descs := make([]IndexDescriptor, 0, len(generic))
	for _, g := range generic {
		var native NativeIndex
		n, err := r.NativeOne(ctx, table, g.Name)
		switch {
		case err == nil:
			native = *n
		case errs.IsNotFound(err):
			// No native row: the descriptor still works with btree
			// defaults and an empty operator-class set.
			r.log.With().Str("table", table).Str("index", g.Name).Logger().
				Debug("no native catalog row for index")
		default:
			return nil, err
		}
		descs = append(descs, merge(table, g, native, types))
	}
	return descs, nil
}

// merge combines one generic descriptor with its native row (zero-valued
// when no native row matched) into an IndexDescriptor.
func merge(table string, g GenericIndex, n NativeIndex, types map[string]string) IndexDescriptor {
	columns := g.Columns
	if len(columns) == 0 && g.Expression != "" {
		columns = []string{g.Expression}
	}

	pred := g.Predicate
	if pred == "" {
		pred = n.Predicate
	}

	method := n.AccessMethod
	if method == "" {
		method = "btree"
	}

	return IndexDescriptor{
		Table:           table,
		Name:            g.Name,
		Columns:         columns,
		AccessMethod:    method,
		Unique:          g.Unique || n.Unique,
		Predicate:       pred,
		Conditions:      predicate.Parse(pred),
		OperatorClasses: ExtractOperatorClasses(n.Definition),
		Definition:      n.Definition,
		ColumnTypes:     types,
	}
}
