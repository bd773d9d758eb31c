// Package scope turns classified index descriptors into named,
// parameter-checked query constructors and holds them in per-table
// registries.
package scope

import (
	"strconv"
	"strings"
)

// Filter is the opaque, AND-composable query-filter value a scope produces.
//
// Conditions are stored with `?` placeholders; `??` escapes a literal
// question mark, which the JSONB key-existence operators need (`?`, `?&`).
// Render numbers placeholders into PostgreSQL `$n` style, so the operator
// text never collides with parameter markers.
type Filter struct {
	conds     []string
	args      []any
	order     string
	orderArgs []any
}

// Where starts a filter from a single condition expression.
func Where(expr string, args ...any) Filter {
	return Filter{conds: []string{expr}, args: args}
}

// And returns a new filter combining the conditions of f and g.
// Order clauses are kept from f unless f has none.
func (f Filter) And(g Filter) Filter {
	out := Filter{
		conds:     append(append([]string{}, f.conds...), g.conds...),
		args:      append(append([]any{}, f.args...), g.args...),
		order:     f.order,
		orderArgs: append([]any{}, f.orderArgs...),
	}
	if out.order == "" {
		out.order = g.order
		out.orderArgs = append([]any{}, g.orderArgs...)
	}
	return out
}

// OrderBy returns a copy of f with an ORDER BY expression attached.
func (f Filter) OrderBy(expr string, args ...any) Filter {
	out := f
	out.order = expr
	out.orderArgs = args
	return out
}

// IsEmpty reports whether the filter carries no conditions.
func (f Filter) IsEmpty() bool {
	return len(f.conds) == 0
}

// Render produces the WHERE fragment, the ORDER BY fragment (empty when
// none), and the bound arguments. Placeholders are numbered sequentially
// across both fragments.
func (f Filter) Render() (where string, orderBy string, args []any) {
	n := 1
	rendered := make([]string, len(f.conds))
	for i, c := range f.conds {
		rendered[i] = renderExpr(c, &n)
	}
	where = strings.Join(rendered, " AND ")
	orderBy = renderExpr(f.order, &n)

	args = append(append([]any{}, f.args...), f.orderArgs...)
	return where, orderBy, args
}

// renderExpr rewrites `?` markers to `$n`, unescaping `??` to a literal `?`.
func renderExpr(expr string, n *int) string {
	if !strings.Contains(expr, "?") {
		return expr
	}
	var b strings.Builder
	for i := 0; i < len(expr); i++ {
		if expr[i] != '?' {
			b.WriteByte(expr[i])
			continue
		}
		if i+1 < len(expr) && expr[i+1] == '?' {
			b.WriteByte('?')
			i++
			continue
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(*n))
		*n++
	}
	return b.String()
}
