package modules

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Module)
	mu       sync.RWMutex
)

// Register adds a module to the registry. Modules register from init
// via blank imports in the command binary; a duplicate ID is a
// programming error.
func Register(m Module) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[m.ID()]; exists {
		panic(fmt.Sprintf("module %s already registered", m.ID()))
	}
	registry[m.ID()] = m
}

// List returns all registered modules for a provider, sorted by ID.
// An empty provider returns everything.
func List(provider string) []Module {
	mu.RLock()
	defer mu.RUnlock()
	var out []Module
	for _, m := range registry {
		if provider == "" || m.Provider() == provider {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Resolve selects modules by a comma-separated ID list, scoped to the
// provider. An empty selector selects every module for the provider.
func Resolve(provider, selector string) ([]Module, error) {
	if strings.TrimSpace(selector) == "" {
		return List(provider), nil
	}
	mu.RLock()
	defer mu.RUnlock()
	var out []Module
	for _, id := range strings.Split(selector, ",") {
		id = strings.TrimSpace(id)
		m, ok := registry[id]
		if !ok {
			return nil, fmt.Errorf("module not found: %s", id)
		}
		if provider != "" && m.Provider() != provider {
			return nil, fmt.Errorf("module %s belongs to provider %s", id, m.Provider())
		}
		out = append(out, m)
	}
	return out, nil
}
