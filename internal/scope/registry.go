package scope

import "sync"

// Registry holds the generated scopes of one table. Registration is
// idempotent and first-wins: a name already present is left untouched,
// even when the underlying index set changed between generation passes.
type Registry struct {
	table string

	mu     sync.RWMutex
	scopes map[string]*QueryDescriptor
	order  []string
}

// NewRegistry creates an empty registry for table.
func NewRegistry(table string) *Registry {
	return &Registry{
		table:  table,
		scopes: map[string]*QueryDescriptor{},
	}
}

// Table returns the table this registry belongs to.
func (r *Registry) Table() string {
	return r.table
}

// Register adds d unless its name is already taken. Returns whether the
// descriptor was actually registered.
func (r *Registry) Register(d *QueryDescriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scopes[d.Name]; exists {
		return false
	}
	r.scopes[d.Name] = d
	r.order = append(r.order, d.Name)
	return true
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*QueryDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.scopes[name]
	return d, ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string{}, r.order...)
}

// Descriptors returns all registered descriptors in registration order.
func (r *Registry) Descriptors() []*QueryDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*QueryDescriptor, len(r.order))
	for i, name := range r.order {
		out[i] = r.scopes[name]
	}
	return out
}

// Len returns the number of registered scopes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}
