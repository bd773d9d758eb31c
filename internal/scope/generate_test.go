package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgscope/internal/catalog"
	"github.com/koustreak/pgscope/internal/config"
	"github.com/koustreak/pgscope/internal/errs"
)

func newTestGenerator() *Generator {
	return NewGenerator(config.Default().Scopes, nil)
}

func generateOne(t *testing.T, d catalog.IndexDescriptor) *QueryDescriptor {
	t.Helper()
	reg := NewRegistry(d.Table)
	got := newTestGenerator().Generate(reg, d)
	require.Len(t, got, 1)
	return got[0]
}

// --- standard equality ---

func TestSingleColumnEquality(t *testing.T) {
	d := generateOne(t, catalog.IndexDescriptor{
		Table:        "users",
		Name:         "index_users_on_email",
		Columns:      []string{"email"},
		AccessMethod: "btree",
	})

	assert.Equal(t, "by_email", d.Name)
	assert.Equal(t, ContractPositional, d.Contract)

	f, err := d.Build("a@b.c")
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "email = $1", where)
	assert.Equal(t, []any{"a@b.c"}, args)

	_, err = d.Build()
	assert.True(t, errs.IsInvalidInput(err))
	_, err = d.Build("a", "b")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestCompositeEqualityRequiresEveryKey(t *testing.T) {
	d := generateOne(t, catalog.IndexDescriptor{
		Table:        "users",
		Name:         "index_users_on_account_id_and_email",
		Columns:      []string{"account_id", "email"},
		AccessMethod: "btree",
	})

	assert.Equal(t, "by_account_id_and_email", d.Name)
	assert.Equal(t, ContractNamed, d.Contract)
	assert.Equal(t, []string{"account_id", "email"}, d.RequiredKeys)

	f, err := d.Build(map[string]any{"account_id": 7, "email": "a@b.c"})
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "account_id = $1 AND email = $2", where)
	assert.Equal(t, []any{7, "a@b.c"}, args)

	// Every absent key is reported, not just the first.
	_, err = d.Build(map[string]any{})
	assert.True(t, errs.IsMissingArgument(err))
	assert.Equal(t, []string{"account_id", "email"}, errs.MissingKeys(err))

	_, err = d.Build(map[string]any{"email": "a@b.c"})
	assert.True(t, errs.IsMissingArgument(err))
	assert.Equal(t, []string{"account_id"}, errs.MissingKeys(err))

	_, err = d.Build("not a map")
	assert.True(t, errs.IsInvalidInput(err))
}

// --- partial ---

func TestPartialSingleColumn(t *testing.T) {
	d := generateOne(t, catalog.IndexDescriptor{
		Table:        "tasks",
		Name:         "index_tasks_on_due_at_pending",
		Columns:      []string{"due_at"},
		AccessMethod: "btree",
		Predicate:    "(completed = false)",
	})

	assert.Equal(t, "by_due_at_pending", d.Name)
	assert.Equal(t, ContractOptionalPositional, d.Contract)
	assert.Equal(t, "(completed = false)", d.Predicate)

	// Zero arguments: predicate only.
	f, err := d.Build()
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "(completed = false)", where)
	assert.Empty(t, args)

	// A value adds the column comparison on top of the predicate.
	f, err = d.Build("2026-09-01")
	require.NoError(t, err)
	where, _, args = f.Render()
	assert.Equal(t, "(completed = false) AND due_at = $1", where)
	assert.Equal(t, []any{"2026-09-01"}, args)

	// Blank values degrade to predicate-only.
	for _, blank := range []any{nil, "", "   "} {
		f, err = d.Build(blank)
		require.NoError(t, err)
		where, _, args = f.Render()
		assert.Equal(t, "(completed = false)", where)
		assert.Empty(t, args)
	}

	_, err = d.Build("a", "b")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestPartialCompositeAllOrNothing(t *testing.T) {
	d := generateOne(t, catalog.IndexDescriptor{
		Table:        "tasks",
		Name:         "index_tasks_on_account_id_and_due_at_pending",
		Columns:      []string{"account_id", "due_at"},
		AccessMethod: "btree",
		Predicate:    "(completed = false)",
	})

	assert.Equal(t, ContractOptionalNamed, d.Contract)

	// Zero arguments, nil, and an empty map all mean predicate-only.
	for _, call := range [][]any{{}, {nil}, {map[string]any{}}} {
		f, err := d.Build(call...)
		require.NoError(t, err)
		where, _, _ := f.Render()
		assert.Equal(t, "(completed = false)", where)
	}

	f, err := d.Build(map[string]any{"account_id": 7, "due_at": "2026-09-01"})
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "(completed = false) AND account_id = $1 AND due_at = $2", where)
	assert.Equal(t, []any{7, "2026-09-01"}, args)

	// A partial key set is rejected with the absent keys named.
	_, err = d.Build(map[string]any{"account_id": 7})
	assert.True(t, errs.IsMissingArgument(err))
	assert.Equal(t, []string{"due_at"}, errs.MissingKeys(err))
}

func TestPartialWinsOverOperatorStrategies(t *testing.T) {
	// A partial GIN jsonb index gets the predicate scope, not the five
	// jsonb scopes.
	d := generateOne(t, catalog.IndexDescriptor{
		Table:           "documents",
		Name:            "index_documents_on_metadata_active",
		Columns:         []string{"metadata"},
		AccessMethod:    "gin",
		OperatorClasses: map[string]bool{"jsonb_ops": true},
		Predicate:       "(archived = false)",
	})

	assert.Equal(t, "by_metadata_active", d.Name)
	assert.Equal(t, ContractOptionalPositional, d.Contract)
}

// --- expression ---

func TestExpressionEquality(t *testing.T) {
	d := generateOne(t, catalog.IndexDescriptor{
		Table:        "users",
		Name:         "index_users_on_lower_email",
		Columns:      []string{"lower(email)"},
		AccessMethod: "btree",
	})

	assert.Equal(t, "by_lower_email", d.Name)
	assert.Equal(t, ContractPositional, d.Contract)

	f, err := d.Build("a@b.c")
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "lower(email) = $1", where)
	assert.Equal(t, []any{"a@b.c"}, args)
}

// --- jsonb ---

func jsonbIndex() catalog.IndexDescriptor {
	return catalog.IndexDescriptor{
		Table:           "documents",
		Name:            "index_documents_on_metadata",
		Columns:         []string{"metadata"},
		AccessMethod:    "gin",
		OperatorClasses: map[string]bool{"jsonb_path_ops": true},
	}
}

func TestJSONBGeneratesFiveScopes(t *testing.T) {
	reg := NewRegistry("documents")
	got := newTestGenerator().Generate(reg, jsonbIndex())

	names := make([]string, len(got))
	for i, d := range got {
		names[i] = d.Name
	}
	assert.Equal(t, []string{
		"metadata_contains",
		"metadata_contained",
		"metadata_has_key",
		"metadata_has_keys",
		"metadata_path",
	}, names)
}

func TestJSONBContainment(t *testing.T) {
	reg := NewRegistry("documents")
	newTestGenerator().Generate(reg, jsonbIndex())

	contains, ok := reg.Lookup("metadata_contains")
	require.True(t, ok)

	// Non-string arguments are serialized to a JSON document.
	f, err := contains.Build(map[string]any{"status": "active"})
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "metadata @> $1::jsonb", where)
	assert.Equal(t, []any{`{"status":"active"}`}, args)

	// Strings pass through as already-serialized documents.
	f, err = contains.Build(`{"a": 1}`)
	require.NoError(t, err)
	_, _, args = f.Render()
	assert.Equal(t, []any{`{"a": 1}`}, args)

	contained, ok := reg.Lookup("metadata_contained")
	require.True(t, ok)
	f, err = contained.Build(`{"a": 1, "b": 2}`)
	require.NoError(t, err)
	where, _, _ = f.Render()
	assert.Equal(t, "metadata <@ $1::jsonb", where)
}

func TestJSONBKeyExistence(t *testing.T) {
	reg := NewRegistry("documents")
	newTestGenerator().Generate(reg, jsonbIndex())

	hasKey, ok := reg.Lookup("metadata_has_key")
	require.True(t, ok)
	f, err := hasKey.Build("priority")
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "metadata ? $1", where)
	assert.Equal(t, []any{"priority"}, args)

	_, err = hasKey.Build(42)
	assert.True(t, errs.IsInvalidInput(err))

	hasKeys, ok := reg.Lookup("metadata_has_keys")
	require.True(t, ok)
	f, err = hasKeys.Build([]string{"a", "b", "c"})
	require.NoError(t, err)
	where, _, args = f.Render()
	assert.Equal(t, "metadata ?& array[$1, $2, $3]", where)
	assert.Equal(t, []any{"a", "b", "c"}, args)

	// Variadic strings work too.
	f, err = hasKeys.Build("a", "b")
	require.NoError(t, err)
	where, _, _ = f.Render()
	assert.Equal(t, "metadata ?& array[$1, $2]", where)

	_, err = hasKeys.Build([]string{})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestJSONBPathExtraction(t *testing.T) {
	reg := NewRegistry("documents")
	newTestGenerator().Generate(reg, jsonbIndex())

	path, ok := reg.Lookup("metadata_path")
	require.True(t, ok)
	assert.Equal(t, ContractPositionalPair, path.Contract)

	f, err := path.Build([]string{"author", "name"}, "gogol")
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "metadata #>> $1 = $2", where)
	assert.Equal(t, []any{[]string{"author", "name"}, "gogol"}, args)

	// A bare string is a one-element path.
	f, err = path.Build("status", "active")
	require.NoError(t, err)
	_, _, args = f.Render()
	assert.Equal(t, []any{[]string{"status"}, "active"}, args)

	_, err = path.Build("status")
	assert.True(t, errs.IsInvalidInput(err))
}

// --- fulltext ---

func TestFullTextSearch(t *testing.T) {
	d := generateOne(t, catalog.IndexDescriptor{
		Table:        "posts",
		Name:         "index_posts_on_body",
		Columns:      []string{"to_tsvector('english'::regconfig, body)"},
		AccessMethod: "gin",
	})

	assert.Equal(t, "body_search", d.Name)
	assert.Equal(t, ContractPositional, d.Contract)
	assert.Contains(t, d.Template, "@@ plainto_tsquery")

	f, err := d.Build("needle")
	require.NoError(t, err)
	where, _, args := f.Render()
	assert.Equal(t, "to_tsvector('english'::regconfig, body) @@ plainto_tsquery('english', $1)", where)
	assert.Equal(t, []any{"needle"}, args)

	_, err = d.Build(42)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestFullTextWinsOverExpressionStrategy(t *testing.T) {
	// A tsvector expression is a match target; the equality strategy for
	// generic expression indexes must not claim it.
	reg := NewRegistry("posts")
	got := newTestGenerator().Generate(reg, catalog.IndexDescriptor{
		Table:        "posts",
		Name:         "index_posts_on_body",
		Columns:      []string{"to_tsvector('english'::regconfig, body)"},
		AccessMethod: "gin",
	})

	require.Len(t, got, 1)
	assert.Equal(t, []string{"body_search"}, reg.Names())

	_, ok := reg.Lookup("by_body")
	assert.False(t, ok)
}

func TestFullTextOnPlainColumn(t *testing.T) {
	d := generateOne(t, catalog.IndexDescriptor{
		Table:        "posts",
		Name:         "index_posts_on_search_vector",
		Columns:      []string{"search_vector"},
		AccessMethod: "gin",
		Definition:   "CREATE INDEX index_posts_on_search_vector ON posts USING gin (to_tsvector('english', body))",
	})

	assert.Equal(t, "search_vector_search", d.Name)
	f, err := d.Build("needle")
	require.NoError(t, err)
	where, _, _ := f.Render()
	assert.Equal(t, "search_vector @@ plainto_tsquery('english', $1)", where)
}

// --- trigram ---

func TestTrigramSimilarity(t *testing.T) {
	d := generateOne(t, catalog.IndexDescriptor{
		Table:           "cities",
		Name:            "index_cities_on_name_trgm",
		Columns:         []string{"name"},
		AccessMethod:    "gin",
		OperatorClasses: map[string]bool{"gin_trgm_ops": true},
	})

	assert.Equal(t, "name_similar", d.Name)

	f, err := d.Build("göteborg", 0.5)
	require.NoError(t, err)
	where, orderBy, args := f.Render()
	assert.Equal(t, "similarity(name, $1) > $2", where)
	assert.Equal(t, "similarity(name, $3) DESC", orderBy)
	assert.Equal(t, []any{"göteborg", 0.5, "göteborg"}, args)

	// Omitted threshold falls back to the configured default.
	f, err = d.Build("göteborg")
	require.NoError(t, err)
	_, _, args = f.Render()
	assert.Equal(t, []any{"göteborg", 0.3, "göteborg"}, args)

	_, err = d.Build(42)
	assert.True(t, errs.IsInvalidInput(err))
	_, err = d.Build("a", "not a number")
	assert.True(t, errs.IsInvalidInput(err))
	_, err = d.Build()
	assert.True(t, errs.IsInvalidInput(err))
}

// --- registration behavior ---

func TestGenerateIsIdempotent(t *testing.T) {
	reg := NewRegistry("documents")
	gen := newTestGenerator()

	first := gen.Generate(reg, jsonbIndex())
	assert.Len(t, first, 5)

	second := gen.Generate(reg, jsonbIndex())
	assert.Empty(t, second)
	assert.Equal(t, 5, reg.Len())
}

func TestNameCollisionFirstWins(t *testing.T) {
	reg := NewRegistry("users")
	gen := newTestGenerator()

	a := catalog.IndexDescriptor{
		Table: "users", Name: "index_users_on_email",
		Columns: []string{"email"}, AccessMethod: "btree",
	}
	b := catalog.IndexDescriptor{
		Table: "users", Name: "users_email_key",
		Columns: []string{"email"}, AccessMethod: "hash",
	}

	require.Len(t, gen.Generate(reg, a), 1)
	assert.Empty(t, gen.Generate(reg, b))

	d, ok := reg.Lookup("by_email")
	require.True(t, ok)
	assert.Equal(t, "index_users_on_email", d.Index)
}
