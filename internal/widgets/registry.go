package widgets

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Source supplies project-scoped widget definitions. Implementations return
// ErrDefinitionNotFound (possibly wrapped) for unknown types.
type Source interface {
	Definition(ctx context.Context, projectID, widgetType string) (*Definition, error)
}

// Registry resolves widget types against the core set first and the project's
// theme set second.
type Registry struct {
	mu     sync.RWMutex
	core   map[string]*Definition
	themes Source
}

// NewRegistry constructs a registry with the provided theme source. A nil
// source means only core widgets are available.
func NewRegistry(themes Source) *Registry {
	return &Registry{
		core:   make(map[string]*Definition),
		themes: themes,
	}
}

// RegisterCore adds or replaces a core widget definition.
func (r *Registry) RegisterCore(def *Definition) {
	if def == nil {
		return
	}
	key := canonicalKey(def.Type)
	if key == "" {
		return
	}
	def.Tier = TierCore
	r.mu.Lock()
	defer r.mu.Unlock()
	r.core[key] = def
}

// CoreTypes lists registered core widget types.
func (r *Registry) CoreTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.core))
	for key := range r.core {
		out = append(out, key)
	}
	return out
}

// Lookup resolves a widget type. A miss on both tiers is reported through the
// result, not as an error; errors are reserved for broken definitions and
// source failures.
func (r *Registry) Lookup(ctx context.Context, projectID, widgetType string) (LookupResult, error) {
	key := canonicalKey(widgetType)
	if key == "" {
		return NotFound(), nil
	}

	r.mu.RLock()
	def, ok := r.core[key]
	r.mu.RUnlock()
	if ok {
		return Found(def), nil
	}

	if r.themes == nil {
		return NotFound(), nil
	}
	def, err := r.themes.Definition(ctx, projectID, key)
	if err != nil {
		if errors.Is(err, ErrDefinitionNotFound) {
			return NotFound(), nil
		}
		return NotFound(), err
	}
	return Found(def), nil
}

func canonicalKey(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
