// Package symbol maps human-readable token names to on-ledger symbol
// identifiers.
//
// A Registry is populated once during session setup and frozen before any
// scenario step runs. Lookups never synthesize a default symbol.
package symbol

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownAlias is returned by Lookup when a name was never registered.
	ErrUnknownAlias = errors.New("symbol: unknown alias")

	// ErrDuplicateSymbol is returned when a name is registered twice.
	ErrDuplicateSymbol = errors.New("symbol: already registered")

	// ErrFrozen is returned when registering into a frozen registry.
	ErrFrozen = errors.New("symbol: registry is frozen")
)

// ID is an opaque, stable on-ledger symbol identifier.
type ID string

func (id ID) String() string { return string(id) }

// Registry is a name -> ID table.
type Registry struct {
	mu     sync.RWMutex
	ids    map[string]ID
	frozen bool
}

// NewRegistry returns an empty, writable registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]ID)}
}

// FromTable builds a registry from a name -> id table and freezes it.
func FromTable(table map[string]string) (*Registry, error) {
	r := NewRegistry()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.Register(name, ID(table[name])); err != nil {
			return nil, err
		}
	}
	r.Freeze()
	return r, nil
}

// Register binds name to id. Registering an existing name fails; there is no
// silent overwrite.
func (r *Registry) Register(name string, id ID) error {
	if name == "" {
		return fmt.Errorf("symbol: empty name")
	}
	if id == "" {
		return fmt.Errorf("symbol: empty id for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %q", ErrFrozen, name)
	}
	if _, exists := r.ids[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSymbol, name)
	}
	r.ids[name] = id
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Resolve returns the ID bound to name.
func (r *Registry) Resolve(name string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[name]
	return id, ok
}

// Lookup is Resolve for callers that treat a miss as fatal.
func (r *Registry) Lookup(name string) (ID, error) {
	id, ok := r.Resolve(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlias, name)
	}
	return id, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ids))
	for name := range r.ids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered symbols.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
