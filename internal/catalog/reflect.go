package catalog

import (
	"context"
	"fmt"

	"github.com/koustreak/pgscope/internal/database"
)

// Reflector is the generic schema-reflection collaborator: it lists the
// indexes of a table without any access-method-specific detail. In a host
// ORM this is the reflection layer's cached index list; pgscope ships a
// catalog-backed implementation so it is usable standalone.
type Reflector interface {
	Indexes(ctx context.Context, table string) ([]GenericIndex, error)
}

// PGReflector implements Reflector against the PostgreSQL catalog.
// Column entries come from pg_get_indexdef per key position, so an entry is
// either a plain column name or the expression text verbatim.
type PGReflector struct {
	db database.DB
}

// NewPGReflector returns a catalog-backed Reflector.
func NewPGReflector(db database.DB) *PGReflector {
	return &PGReflector{db: db}
}

const reflectQuery = `
	SELECT c.relname,
	       i.indisunique,
	       COALESCE(pg_get_expr(i.indpred, i.indrelid, true), ''),
	       array_agg(pg_get_indexdef(i.indexrelid, k.n, true) ORDER BY k.n)
	FROM pg_index i
	JOIN pg_class c      ON c.oid  = i.indexrelid
	JOIN pg_class t      ON t.oid  = i.indrelid
	JOIN pg_namespace ns ON ns.oid = t.relnamespace
	CROSS JOIN LATERAL generate_series(1, i.indnkeyatts) k(n)
	WHERE t.relname  = $1
	  AND ns.nspname = current_schema()
	  AND NOT i.indisprimary
	GROUP BY c.relname, i.indisunique, i.indpred, i.indrelid
	ORDER BY c.relname`

// Indexes lists the generic descriptors for every secondary index on table.
func (p *PGReflector) Indexes(ctx context.Context, table string) ([]GenericIndex, error) {
	rows, err := p.db.Query(ctx, reflectQuery, table)
	if err != nil {
		return nil, fmt.Errorf("reflect indexes for %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []GenericIndex
	for rows.Next() {
		var g GenericIndex
		if err := rows.Scan(&g.Name, &g.Unique, &g.Predicate, &g.Columns); err != nil {
			return nil, fmt.Errorf("scan generic index: %w", err)
		}
		indexes = append(indexes, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generic indexes: %w", err)
	}
	return indexes, nil
}
