// Package persona provides the persona catalog sessions draw participants from.
//
// A Registry groups personas into ordered categories. It is safe for
// concurrent use: many sessions may Select from one registry while an
// administrator edits it.
package persona

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
)

// Compile-time check.
var _ core.PersonaRegistry = (*Registry)(nil)

// Options configures a Registry.
type Options struct {
	Logger logging.Logger
}

// Registry is an in-memory persona catalog.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	categories map[string][]core.Persona
	logger     logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		categories: make(map[string][]core.Persona),
		logger:     logging.OrNoOp(opts.Logger),
	}
}

// Categories returns the category names in catalog order.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Lookup returns the personas of a category in catalog order.
func (r *Registry) Lookup(category string) ([]core.Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ps, ok := r.categories[category]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", category, core.ErrNotFound)
	}
	return slices.Clone(ps), nil
}

// All returns every persona, category by category.
func (r *Registry) All() []core.Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.all()
}

func (r *Registry) all() []core.Persona {
	return lo.FlatMap(r.order, func(c string, _ int) []core.Persona { return slices.Clone(r.categories[c]) })
}

// Select draws count distinct personas from scope, a category name or
// core.ScopeMixed. A category selection keeps catalog order; a mixed
// selection is returned in sampled order. A nil rng yields the first count
// personas of the scope.
func (r *Registry) Select(rng *rand.Rand, count int, scope string) ([]core.Persona, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: select %d personas", core.ErrInvalidConfiguration, count)
	}

	r.mu.RLock()
	var pool []core.Persona
	if scope == core.ScopeMixed {
		pool = r.all()
	} else if ps, ok := r.categories[scope]; ok {
		pool = slices.Clone(ps)
	} else {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: category %q: %w", core.ErrInsufficientPersonas, scope, core.ErrNotFound)
	}
	r.mu.RUnlock()

	if count > len(pool) {
		return nil, fmt.Errorf("%w: requested %d from %q, %d available", core.ErrInsufficientPersonas, count, scope, len(pool))
	}

	if rng == nil {
		return pool[:count], nil
	}

	idx := rng.Perm(len(pool))[:count]
	if scope != core.ScopeMixed {
		slices.Sort(idx)
	}

	out := lo.Map(idx, func(i int, _ int) core.Persona { return pool[i] })
	r.logger.Debug("personas selected", "scope", scope, "count", count, "names", lo.Map(out, func(p core.Persona, _ int) string { return p.Name }))
	return out, nil
}

// Search returns personas whose name, role or personality contains query,
// ignoring case.
func (r *Registry) Search(query string) []core.Persona {
	q := strings.ToLower(query)
	return lo.Filter(r.All(), func(p core.Persona, _ int) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Role), q) ||
			strings.Contains(strings.ToLower(p.Personality), q)
	})
}

// AddCategory creates a category holding personas.
func (r *Registry) AddCategory(name string, personas ...core.Persona) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty category name", core.ErrInvalidConfiguration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[name]; ok {
		return fmt.Errorf("category %q: %w", name, core.ErrAlreadyExists)
	}

	list := make([]core.Persona, 0, len(personas))
	for _, p := range personas {
		p, err := normalize(name, p)
		if err != nil {
			return err
		}
		if containsName(list, p.Name) {
			return fmt.Errorf("persona %q in %q: %w", p.Name, name, core.ErrAlreadyExists)
		}
		list = append(list, p)
	}

	r.order = append(r.order, name)
	r.categories[name] = list
	return nil
}

// RemoveCategory deletes a category and its personas.
func (r *Registry) RemoveCategory(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[name]; !ok {
		return fmt.Errorf("category %q: %w", name, core.ErrNotFound)
	}
	delete(r.categories, name)
	r.order = slices.DeleteFunc(r.order, func(c string) bool { return c == name })
	return nil
}

// Add appends a persona to category, creating the category if needed.
func (r *Registry) Add(category string, p core.Persona) error {
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("%w: empty category name", core.ErrInvalidConfiguration)
	}
	p, err := normalize(category, p)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.categories[category]
	if !ok {
		r.order = append(r.order, category)
	}
	if containsName(list, p.Name) {
		return fmt.Errorf("persona %q in %q: %w", p.Name, category, core.ErrAlreadyExists)
	}
	r.categories[category] = append(list, p)
	return nil
}

// Remove deletes the persona called name from category.
func (r *Registry) Remove(category, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.categories[category]
	if !ok {
		return fmt.Errorf("category %q: %w", category, core.ErrNotFound)
	}
	if !containsName(list, name) {
		return fmt.Errorf("persona %q in %q: %w", name, category, core.ErrNotFound)
	}
	r.categories[category] = slices.DeleteFunc(slices.Clone(list), func(p core.Persona) bool { return p.Name == name })
	return nil
}

// Stats summarizes the catalog.
type Stats struct {
	Categories  int
	Personas    int
	PerCategory map[string]int
}

// Stats returns catalog counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	per := lo.SliceToMap(r.order, func(c string) (string, int) { return c, len(r.categories[c]) })
	return Stats{
		Categories:  len(r.order),
		Personas:    lo.Sum(lo.Values(per)),
		PerCategory: per,
	}
}

// snapshot returns the catalog as ordered categories.
func (r *Registry) snapshot() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(c string, _ int) Category {
		return Category{Name: c, Personas: slices.Clone(r.categories[c])}
	})
}

func normalize(category string, p core.Persona) (core.Persona, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, fmt.Errorf("%w: persona without name in %q", core.ErrInvalidConfiguration, category)
	}
	p.Category = category
	if p.ID == "" {
		p.ID = category + ":" + slug(p.Name)
	}
	return p, nil
}

func slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(name, ".", ""))), "-")
}

func containsName(list []core.Persona, name string) bool {
	return lo.ContainsBy(list, func(p core.Persona) bool { return p.Name == name })
}
