package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds table definitions by key.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]Table)}
}

// Register validates and adds a table definition.
// A table with the same key must not already be registered.
func (r *Registry) Register(t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[t.Key]; exists {
		return fmt.Errorf("table already registered: %s", t.Key)
	}
	if t.Source == "" {
		t.Source = SourceMemory
	}
	r.tables[t.Key] = t
	return nil
}

// Get returns a table definition by key.
func (r *Registry) Get(key string) (Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[key]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, key)
	}
	return t, nil
}

// All returns every table, sorted by group then key.
func (r *Registry) All() []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Table, 0, len(r.tables))
	for _, t := range r.tables {
		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// ByGroup returns the tables of group sorted by key.
func (r *Registry) ByGroup(group string) []Table {
	var result []Table
	for _, t := range r.All() {
		if t.Group == group {
			result = append(result, t)
		}
	}
	return result
}

// Groups returns the distinct group names, sorted.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, t := range r.tables {
		seen[t.Group] = true
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Count returns the number of registered tables.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}
