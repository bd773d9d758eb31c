package catalog

import "regexp"

// GenericIndex is the access-method-agnostic index description supplied by
// the schema-reflection collaborator. It carries no native PostgreSQL
// detail — no access method, no operator classes, no definition text.
type GenericIndex struct {
	Name       string
	Columns    []string // plain column names or expression text
	Unique     bool
	Predicate  string // raw partial-index condition, "" when absent
	Expression string // expression text when the reflection layer separates it out
}

// NativeIndex is one row of PostgreSQL-native index metadata read from
// pg_index / pg_class / pg_am.
type NativeIndex struct {
	Name         string
	Definition   string // full CREATE INDEX statement from pg_get_indexdef
	AccessMethod string // btree, hash, gin, gist, spgist, brin, …
	Unique       bool
	Predicate    string // pg_get_expr of indpred, "" when the index is total
}

// IndexDescriptor is the merged, enriched view of one physical index.
// It is derived, read-only, and memoized per table for the process lifetime.
type IndexDescriptor struct {
	Table        string
	Name         string
	Columns      []string // ordered; an entry may be an expression
	AccessMethod string
	Unique       bool

	// Predicate is the raw partial-index condition. It is always applied
	// verbatim to generated scopes; Conditions only adds structured hints.
	Predicate  string
	Conditions map[string]any

	// OperatorClasses disambiguates GIN sub-kinds (jsonb_path_ops,
	// gin_trgm_ops, …). Empty when the definition was unavailable.
	OperatorClasses map[string]bool

	// Definition is the raw index definition, the source-of-truth fallback
	// for anything generic reflection does not expose.
	Definition string

	// ColumnTypes maps the table's column names to declared types,
	// used to recognize JSONB columns indexed without an explicit opclass.
	ColumnTypes map[string]string
}

// Partial reports whether the index covers only rows matching a predicate.
func (d IndexDescriptor) Partial() bool {
	return d.Predicate != ""
}

// Composite reports whether the index spans more than one column.
func (d IndexDescriptor) Composite() bool {
	return len(d.Columns) > 1
}

var opClassPattern = regexp.MustCompile(`\b[a-z0-9]+(?:_[a-z0-9]+)*_ops\b`)

// ExtractOperatorClasses pulls operator-class tokens (jsonb_ops,
// gin_trgm_ops, …) out of a raw index definition. A missing or malformed
// definition yields an empty set rather than an error.
func ExtractOperatorClasses(definition string) map[string]bool {
	classes := map[string]bool{}
	for _, m := range opClassPattern.FindAllString(definition, -1) {
		classes[m] = true
	}
	return classes
}
