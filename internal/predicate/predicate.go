// Package predicate extracts structured conditions from partial-index
// predicate text.
//
// Parsing is best-effort enrichment only: the raw predicate always remains
// the filter actually applied to queries, and an unparseable predicate
// simply yields no structured conditions. The recognized shapes are the
// ones PostgreSQL commonly prints from pg_get_expr for simple partial
// indexes: equality to a quoted literal, equality to a boolean literal,
// IS NULL and IS NOT NULL checks.
package predicate

import "regexp"

var (
	stringEq = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=\s*'([^']*)'`)
	boolEq   = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(true|false)\b`)
	isNull   = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s+IS\s+NULL\b`)
	notNull  = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s+IS\s+NOT\s+NULL\b`)
)

// Parse returns the structured conditions found in raw. The patterns are
// applied independently and cumulatively; a predicate may match more than
// one. An empty or unrecognized predicate yields an empty map, never an
// error.
func Parse(raw string) map[string]any {
	conds := map[string]any{}
	if raw == "" {
		return conds
	}

	for _, m := range stringEq.FindAllStringSubmatch(raw, -1) {
		conds[m[1]] = m[2]
	}
	for _, m := range boolEq.FindAllStringSubmatch(raw, -1) {
		conds[m[1]] = m[2] == "true"
	}
	// IS NOT NULL is matched first so its columns can be skipped by the
	// IS NULL pattern below (the latter would otherwise never match a
	// NOT NULL column anyway, but the ordering keeps intent obvious).
	notNullCols := map[string]bool{}
	for _, m := range notNull.FindAllStringSubmatch(raw, -1) {
		conds[m[1]+"_not_null"] = true
		notNullCols[m[1]] = true
	}
	for _, m := range isNull.FindAllStringSubmatch(raw, -1) {
		if notNullCols[m[1]] {
			continue
		}
		conds[m[1]] = nil
	}

	return conds
}
