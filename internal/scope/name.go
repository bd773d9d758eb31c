package scope

import "strings"

// Namer derives stable scope names from index shape. Column-based names
// join normalized column names with the configured separator; index-based
// names strip the structural tokens PostgreSQL/ORM naming conventions add
// around the meaningful part (index_users_on_email → email).
type Namer struct {
	Table     string
	Prefix    string
	Separator string
}

// FromColumns builds a name from the index's column list, e.g.
// [account_id, email] → by_account_id_and_email.
func (n Namer) FromColumns(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = NormalizeColumn(c)
	}
	return n.Prefix + strings.Join(parts, n.Separator)
}

// FromIndexName builds a name from the index's own name with structural
// prefixes and suffixes stripped. Used for expression and partial indexes,
// whose column list does not describe what they do.
func (n Namer) FromIndexName(index string) string {
	return n.Prefix + StripIndexName(index, n.Table)
}

// Base returns the unprefixed name root for operator-family scopes
// (metadata_contains, title_similar, …).
func (n Namer) Base(col string) string {
	return NormalizeColumn(col)
}

// NormalizeColumn lowercases a column entry and drops quoting and
// per-column index options (DESC, NULLS LAST, opclass names).
func NormalizeColumn(col string) string {
	s := strings.ToLower(strings.TrimSpace(col))
	s = strings.ReplaceAll(s, `"`, "")
	// "email DESC NULLS LAST" and "body gin_trgm_ops" both reduce to the
	// leading identifier.
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	return s
}

// structural tokens commonly wrapped around the meaningful part of an
// index name by naming conventions and access-method suffixes.
var (
	namePrefixes = []string{"index_", "idx_", "ix_"}
	nameSuffixes = []string{"_index", "_idx", "_key", "_btree", "_gin", "_gist", "_spgist", "_brin", "_hash", "_trgm"}
)

// StripIndexName removes structural prefixes/suffixes and the table-name
// token from an index name. Falls back to the lowercased original when
// stripping would leave nothing.
func StripIndexName(index, table string) string {
	s := strings.ToLower(index)

	for _, p := range namePrefixes {
		s = strings.TrimPrefix(s, p)
	}
	if table != "" {
		s = strings.TrimPrefix(s, strings.ToLower(table)+"_")
	}
	s = strings.TrimPrefix(s, "on_")

	for {
		before := s
		for _, suf := range nameSuffixes {
			s = strings.TrimSuffix(s, suf)
		}
		if s == before {
			break
		}
	}

	if s == "" {
		return strings.ToLower(index)
	}
	return s
}
