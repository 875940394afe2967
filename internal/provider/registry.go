package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is a read-only set of providers indexed by lower-cased name.
type Registry struct {
	byName map[string]Provider
}

// NewRegistry builds a registry. Nil providers, empty names and duplicate
// names are rejected.
func NewRegistry(providers ...Provider) (Registry, error) {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return Registry{}, fmt.Errorf("provider must not be nil")
		}
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("provider name must not be empty")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("duplicate provider %q", name)
		}
		byName[name] = p
	}
	return Registry{byName: byName}, nil
}

// Get looks a provider up by name, case-insensitively.
func (r Registry) Get(name string) (Provider, bool) {
	if r.byName == nil {
		return nil, false
	}
	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names returns the registered provider names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
