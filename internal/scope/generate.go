package scope

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koustreak/pgscope/internal/catalog"
	"github.com/koustreak/pgscope/internal/config"
	"github.com/koustreak/pgscope/internal/errs"
	"github.com/koustreak/pgscope/internal/logger"
)

// Generator compiles classified index descriptors into query descriptors
// and registers them. Dispatch priority: partial > fulltext > expression >
// jsonb > trigram > standard. An index that is partial never reaches the
// type-specific strategies; its defining characteristic is the predicate.
// Full-text comes before the expression strategy because a tsvector
// expression is a match target, not an equality operand.
type Generator struct {
	cfg config.ScopesConfig
	log *logger.Logger
}

// NewGenerator returns a Generator using the given naming and operator
// settings.
func NewGenerator(cfg config.ScopesConfig, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.New(nil)
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.3
	}
	return &Generator{cfg: cfg, log: log}
}

// Generate produces the query descriptors for one index and registers them
// in reg. Names already present are skipped silently (first registration
// wins); only the descriptors actually registered are returned.
func (g *Generator) Generate(reg *Registry, d catalog.IndexDescriptor) []*QueryDescriptor {
	tags := catalog.Classify(d)
	namer := Namer{Table: d.Table, Prefix: g.cfg.Prefix, Separator: g.cfg.Separator}

	var candidates []*QueryDescriptor
	switch {
	case tags.Partial:
		candidates = []*QueryDescriptor{g.partial(namer, d)}
	case tags.Class == catalog.ClassFullText:
		candidates = []*QueryDescriptor{g.fulltext(namer, d, tags)}
	case tags.Expression:
		candidates = []*QueryDescriptor{g.expression(namer, d, tags)}
	case tags.Class == catalog.ClassJSONB:
		candidates = g.jsonb(namer, d)
	case tags.Class == catalog.ClassTrigram:
		candidates = []*QueryDescriptor{g.trigram(namer, d)}
	default:
		candidates = []*QueryDescriptor{g.standard(namer, d)}
	}

	registered := make([]*QueryDescriptor, 0, len(candidates))
	for _, c := range candidates {
		if reg.Register(c) {
			registered = append(registered, c)
			continue
		}
		g.log.With().Str("table", d.Table).Str("scope", c.Name).Logger().
			Debug("scope name already registered, skipping")
	}
	return registered
}

// --- standard equality (btree, hash, unclassified gin/gist) ---

func (g *Generator) standard(n Namer, d catalog.IndexDescriptor) *QueryDescriptor {
	name := n.FromColumns(d.Columns)
	targets := conditionTargets(d.Columns)

	if len(targets) == 1 {
		col := targets[0]
		return &QueryDescriptor{
			Name:     name,
			Contract: ContractPositional,
			Template: col + " = $1",
			Index:    d.Name,
			build: func(args ...any) (Filter, error) {
				if len(args) != 1 {
					return Filter{}, badArity(name, "exactly one positional value", len(args))
				}
				return Where(escapeMarkers(col)+" = ?", args[0]), nil
			},
		}
	}

	keys := targets
	return &QueryDescriptor{
		Name:         name,
		Contract:     ContractNamed,
		RequiredKeys: keys,
		Template:     equalityTemplate(keys),
		Index:        d.Name,
		build: func(args ...any) (Filter, error) {
			vals, err := namedValues(name, keys, args)
			if err != nil {
				return Filter{}, err
			}
			return equalityFilter(keys, vals), nil
		},
	}
}

// --- partial (always-applied predicate, optional column equality) ---

func (g *Generator) partial(n Namer, d catalog.IndexDescriptor) *QueryDescriptor {
	name := n.FromIndexName(d.Name)
	pred := d.Predicate
	targets := conditionTargets(d.Columns)

	if len(targets) == 1 {
		col := targets[0]
		return &QueryDescriptor{
			Name:      name,
			Contract:  ContractOptionalPositional,
			Template:  pred + " [AND " + col + " = $1]",
			Predicate: pred,
			Index:     d.Name,
			build: func(args ...any) (Filter, error) {
				switch len(args) {
				case 0:
					return Where(escapeMarkers(pred)), nil
				case 1:
					// Blank values mean "predicate only" — a blank is
					// never translated into a column comparison.
					if isBlank(args[0]) {
						return Where(escapeMarkers(pred)), nil
					}
					return Where(escapeMarkers(pred)).And(Where(escapeMarkers(col)+" = ?", args[0])), nil
				default:
					return Filter{}, badArity(name, "zero or one positional value", len(args))
				}
			},
		}
	}

	keys := targets
	return &QueryDescriptor{
		Name:         name,
		Contract:     ContractOptionalNamed,
		RequiredKeys: keys,
		Template:     pred + " [AND " + equalityTemplate(keys) + "]",
		Predicate:    pred,
		Index:        d.Name,
		build: func(args ...any) (Filter, error) {
			if len(args) == 0 || (len(args) == 1 && args[0] == nil) {
				return Where(escapeMarkers(pred)), nil
			}
			if len(args) == 1 {
				if m, ok := args[0].(map[string]any); ok && len(m) == 0 {
					return Where(escapeMarkers(pred)), nil
				}
			}
			// Non-empty argument set: all keys or nothing.
			vals, err := namedValues(name, keys, args)
			if err != nil {
				return Filter{}, err
			}
			return Where(escapeMarkers(pred)).And(equalityFilter(keys, vals)), nil
		},
	}
}

// --- expression equality ---

func (g *Generator) expression(n Namer, d catalog.IndexDescriptor, tags catalog.Tags) *QueryDescriptor {
	name := n.FromIndexName(d.Name)
	expr := strings.TrimSpace(tags.ExpressionText)

	return &QueryDescriptor{
		Name:     name,
		Contract: ContractPositional,
		Template: expr + " = $1",
		Index:    d.Name,
		build: func(args ...any) (Filter, error) {
			if len(args) != 1 {
				return Filter{}, badArity(name, "exactly one positional value", len(args))
			}
			return Where(escapeMarkers(expr)+" = ?", args[0]), nil
		},
	}
}

// --- jsonb operator family (five scopes per index) ---

func (g *Generator) jsonb(n Namer, d catalog.IndexDescriptor) []*QueryDescriptor {
	col := conditionTarget(d.Columns[0])
	base := n.Base(d.Columns[0])
	esc := escapeMarkers(col)

	contains := &QueryDescriptor{
		Name:     base + "_contains",
		Contract: ContractPositional,
		Template: col + " @> $1::jsonb",
		Index:    d.Name,
		build: func(args ...any) (Filter, error) {
			doc, err := jsonDocument(base+"_contains", args)
			if err != nil {
				return Filter{}, err
			}
			return Where(esc+" @> ?::jsonb", doc), nil
		},
	}

	contained := &QueryDescriptor{
		Name:     base + "_contained",
		Contract: ContractPositional,
		Template: col + " <@ $1::jsonb",
		Index:    d.Name,
		build: func(args ...any) (Filter, error) {
			doc, err := jsonDocument(base+"_contained", args)
			if err != nil {
				return Filter{}, err
			}
			return Where(esc+" <@ ?::jsonb", doc), nil
		},
	}

	hasKey := &QueryDescriptor{
		Name:     base + "_has_key",
		Contract: ContractPositional,
		Template: col + " ? $1",
		Index:    d.Name,
		build: func(args ...any) (Filter, error) {
			if len(args) != 1 {
				return Filter{}, badArity(base+"_has_key", "exactly one key string", len(args))
			}
			key, ok := args[0].(string)
			if !ok {
				return Filter{}, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("scope %s_has_key expects a string key", base))
			}
			// `??` renders as the jsonb key-existence operator, not a
			// parameter marker.
			return Where(esc+" ?? ?", key), nil
		},
	}

	hasKeys := &QueryDescriptor{
		Name:     base + "_has_keys",
		Contract: ContractPositional,
		Template: col + " ?& array[$1, …]",
		Index:    d.Name,
		build: func(args ...any) (Filter, error) {
			keys, err := stringList(base+"_has_keys", args)
			if err != nil {
				return Filter{}, err
			}
			// One placeholder per key, same order and count as the
			// bound values.
			markers := make([]string, len(keys))
			vals := make([]any, len(keys))
			for i, k := range keys {
				markers[i] = "?"
				vals[i] = k
			}
			expr := esc + " ??& array[" + strings.Join(markers, ", ") + "]"
			return Where(expr, vals...), nil
		},
	}

	path := &QueryDescriptor{
		Name:     base + "_path",
		Contract: ContractPositionalPair,
		Template: col + " #>> $1 = $2",
		Index:    d.Name,
		build: func(args ...any) (Filter, error) {
			if len(args) != 2 {
				return Filter{}, badArity(base+"_path", "a path and an expected value", len(args))
			}
			p, err := textPath(base+"_path", args[0])
			if err != nil {
				return Filter{}, err
			}
			return Where(esc+" #>> ? = ?", p, args[1]), nil
		},
	}

	return []*QueryDescriptor{contains, contained, hasKey, hasKeys, path}
}

// --- full-text search ---

func (g *Generator) fulltext(n Namer, d catalog.IndexDescriptor, tags catalog.Tags) *QueryDescriptor {
	target := strings.TrimSpace(tags.ExpressionText)
	base := StripIndexName(d.Name, d.Table)
	if target == "" {
		target = conditionTarget(d.Columns[0])
		base = n.Base(d.Columns[0])
	}
	name := base + "_search"
	lang := g.cfg.Language

	return &QueryDescriptor{
		Name:     name,
		Contract: ContractPositional,
		Template: fmt.Sprintf("%s @@ plainto_tsquery('%s', $1)", target, lang),
		Index:    d.Name,
		build: func(args ...any) (Filter, error) {
			if len(args) != 1 {
				return Filter{}, badArity(name, "exactly one query string", len(args))
			}
			q, ok := args[0].(string)
			if !ok {
				return Filter{}, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("scope %s expects a string query", name))
			}
			expr := fmt.Sprintf("%s @@ plainto_tsquery('%s', ?)", escapeMarkers(target), lang)
			return Where(expr, q), nil
		},
	}
}

// --- trigram similarity ---

func (g *Generator) trigram(n Namer, d catalog.IndexDescriptor) *QueryDescriptor {
	col := conditionTarget(d.Columns[0])
	name := n.Base(d.Columns[0]) + "_similar"
	defaultThreshold := g.cfg.SimilarityThreshold
	esc := escapeMarkers(col)

	return &QueryDescriptor{
		Name:     name,
		Contract: ContractPositionalPair,
		Template: fmt.Sprintf("similarity(%s, $1) > $2", col),
		Index:    d.Name,
		build: func(args ...any) (Filter, error) {
			if len(args) < 1 || len(args) > 2 {
				return Filter{}, badArity(name, "a text value and an optional threshold", len(args))
			}
			text, ok := args[0].(string)
			if !ok {
				return Filter{}, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("scope %s expects a string value", name))
			}
			threshold := defaultThreshold
			if len(args) == 2 {
				t, err := toFloat(name, args[1])
				if err != nil {
					return Filter{}, err
				}
				threshold = t
			}
			return Where("similarity("+esc+", ?) > ?", text, threshold).
				OrderBy("similarity("+esc+", ?) DESC", text), nil
		},
	}
}

// --- argument helpers ---

// namedValues enforces the composite argument rule: the required key set is
// exactly the index's column names, and every absent key is reported, not
// just the first.
func namedValues(scope string, keys []string, args []any) (map[string]any, error) {
	if len(args) != 1 {
		return nil, badArity(scope, "a single map of named values", len(args))
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("scope %s expects a map of named values", scope))
	}

	var missing []string
	for _, k := range keys {
		if _, present := m[k]; !present {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, errs.MissingArgument(missing)
	}
	return m, nil
}

func equalityFilter(keys []string, vals map[string]any) Filter {
	f := Where(escapeMarkers(keys[0])+" = ?", vals[keys[0]])
	for _, k := range keys[1:] {
		f = f.And(Where(escapeMarkers(k)+" = ?", vals[k]))
	}
	return f
}

func equalityTemplate(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s = $%d", k, i+1)
	}
	return strings.Join(parts, " AND ")
}

func jsonDocument(scope string, args []any) (string, error) {
	if len(args) != 1 {
		return "", badArity(scope, "exactly one document", len(args))
	}
	switch v := args[0].(type) {
	case string:
		// Already serialized by the caller.
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", errs.Wrap(errs.ErrKindInvalidInput,
				fmt.Sprintf("scope %s: document is not serializable", scope), err)
		}
		return string(raw), nil
	}
}

func stringList(scope string, args []any) ([]string, error) {
	var raw []any
	switch {
	case len(args) == 1:
		switch v := args[0].(type) {
		case []string:
			if len(v) == 0 {
				return nil, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("scope %s requires at least one key", scope))
			}
			return v, nil
		case []any:
			raw = v
		default:
			raw = args
		}
	case len(args) > 1:
		raw = args
	default:
		return nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("scope %s requires at least one key", scope))
	}

	if len(raw) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("scope %s requires at least one key", scope))
	}
	keys := make([]string, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("scope %s expects string keys", scope))
		}
		keys[i] = s
	}
	return keys, nil
}

// textPath normalizes a path argument: a single string is treated as a
// one-element path, a sequence of strings is used as-is.
func textPath(scope string, v any) ([]string, error) {
	switch p := v.(type) {
	case string:
		return []string{p}, nil
	case []string:
		return p, nil
	case []any:
		out := make([]string, len(p))
		for i, e := range p {
			s, ok := e.(string)
			if !ok {
				return nil, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("scope %s expects a string path", scope))
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("scope %s expects a string path", scope))
	}
}

func toFloat(scope string, v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	default:
		return 0, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("scope %s expects a numeric threshold", scope))
	}
}

func badArity(scope, want string, got int) *errs.Error {
	return errs.New(errs.ErrKindInvalidInput,
		fmt.Sprintf("scope %s takes %s, got %d arguments", scope, want, got))
}

// isBlank reports whether a value should be treated as "no column filter":
// nil, or a string of only whitespace.
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// conditionTarget reduces a column entry to what the filter compares:
// expressions pass through untouched, plain entries lose quoting and
// per-column options.
func conditionTarget(col string) string {
	trimmed := strings.TrimSpace(col)
	if strings.Contains(trimmed, "(") {
		return trimmed
	}
	return NormalizeColumn(trimmed)
}

func conditionTargets(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = conditionTarget(c)
	}
	return out
}

// escapeMarkers doubles literal question marks in catalog-derived text so
// the filter renderer does not mistake them for parameter markers.
func escapeMarkers(s string) string {
	return strings.ReplaceAll(s, "?", "??")
}
