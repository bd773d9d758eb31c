// Package analyzer orchestrates one analysis pass per table: catalog read,
// classification, scope generation, registration. Results are memoized for
// the process lifetime — an index added after the first pass is not picked
// up, and a registered scope name is never re-derived or overwritten.
package analyzer

import (
	"context"
	"sort"
	"sync"

	"github.com/koustreak/pgscope/internal/catalog"
	"github.com/koustreak/pgscope/internal/config"
	"github.com/koustreak/pgscope/internal/database"
	"github.com/koustreak/pgscope/internal/logger"
	"github.com/koustreak/pgscope/internal/scope"
)

// Analyzer builds and caches per-table scope registries.
// Safe for concurrent use; different tables may be analyzed concurrently,
// each table's registry writes are serialized.
type Analyzer struct {
	db        database.DB
	reader    *catalog.Reader
	reflector catalog.Reflector
	gen       *scope.Generator
	cfg       *config.Config
	log       *logger.Logger

	mu          sync.Mutex
	descriptors map[string][]catalog.IndexDescriptor
	registries  map[string]*scope.Registry
}

// New validates the backend and returns an Analyzer. A non-PostgreSQL
// connection fails here, immediately — not on first use.
func New(db database.DB, reflector catalog.Reflector, cfg *config.Config, log *logger.Logger) (*Analyzer, error) {
	if log == nil {
		log = logger.New(nil)
	}
	reader, err := catalog.NewReader(db, log)
	if err != nil {
		return nil, err
	}
	if reflector == nil {
		reflector = catalog.NewPGReflector(db)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	return &Analyzer{
		db:          db,
		reader:      reader,
		reflector:   reflector,
		gen:         scope.NewGenerator(cfg.Scopes, log),
		cfg:         cfg,
		log:         log,
		descriptors: map[string][]catalog.IndexDescriptor{},
		registries:  map[string]*scope.Registry{},
	}, nil
}

// AnalyzeTable builds (or returns the memoized) scope registry for table.
// An excluded table yields an empty, uncached registry.
func (a *Analyzer) AnalyzeTable(ctx context.Context, table string) (*scope.Registry, error) {
	if !a.cfg.Scopes.TableIncluded(table) {
		a.log.With().Str("table", table).Logger().Debug("table excluded by configuration")
		return scope.NewRegistry(table), nil
	}

	a.mu.Lock()
	if reg, ok := a.registries[table]; ok {
		a.mu.Unlock()
		return reg, nil
	}
	a.mu.Unlock()

	// Catalog reads happen outside the lock so unrelated tables can be
	// analyzed concurrently.
	generic, err := a.reflector.Indexes(ctx, table)
	if err != nil {
		return nil, err
	}
	descs, err := a.reader.Read(ctx, table, generic)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have finished the same table meanwhile.
	if reg, ok := a.registries[table]; ok {
		return reg, nil
	}

	reg := scope.NewRegistry(table)
	for _, d := range descs {
		registered := a.gen.Generate(reg, d)
		for _, qd := range registered {
			a.log.With().
				Str("table", table).
				Str("index", d.Name).
				Str("scope", qd.Name).
				Logger().Debug("scope registered")
		}
	}

	a.descriptors[table] = descs
	a.registries[table] = reg

	a.log.With().Str("table", table).Int("indexes", len(descs)).Int("scopes", reg.Len()).
		Logger().Info("table analyzed")
	return reg, nil
}

// AnalyzeAll analyzes every table the database lists, honoring the
// include/exclude configuration, and returns the registries keyed by table.
func (a *Analyzer) AnalyzeAll(ctx context.Context) (map[string]*scope.Registry, error) {
	tables, err := a.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	out := map[string]*scope.Registry{}
	for _, table := range tables {
		if !a.cfg.Scopes.TableIncluded(table) {
			a.log.With().Str("table", table).Logger().Debug("table excluded by configuration")
			continue
		}
		reg, err := a.AnalyzeTable(ctx, table)
		if err != nil {
			return nil, err
		}
		out[table] = reg
	}
	return out, nil
}

// Registry returns the memoized registry for table, if an analysis pass has
// completed for it.
func (a *Analyzer) Registry(table string) (*scope.Registry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	reg, ok := a.registries[table]
	return reg, ok
}

// Descriptors returns the memoized index descriptors for table.
func (a *Analyzer) Descriptors(table string) ([]catalog.IndexDescriptor, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	descs, ok := a.descriptors[table]
	return descs, ok
}

// Tables returns the names of all analyzed tables, sorted.
func (a *Analyzer) Tables() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	tables := make([]string, 0, len(a.registries))
	for t := range a.registries {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
