package corrector

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownCorrector is returned when no factory is registered under a
	// name.
	ErrUnknownCorrector = errors.New("corrector: unknown corrector")
	// ErrInvalidParam is returned by factories for bad parameters.
	ErrInvalidParam = errors.New("corrector: invalid parameter")
)

// Spec describes a corrector by name and construction parameters, so every
// worker can build its own instance instead of sharing one.
type Spec struct {
	Name   string            `json:"name" validate:"required"`
	Params map[string]string `json:"params,omitempty"`
}

// String renders the spec as name or name:key=value,key=value.
func (s Spec) String() string {
	if len(s.Params) == 0 {
		return s.Name
	}
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + s.Params[k]
	}
	return s.Name + ":" + strings.Join(parts, ",")
}

// ParseSpec reads the String form.
func ParseSpec(s string) (Spec, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(s), ":")
	if name == "" {
		return Spec{}, fmt.Errorf("%w: empty corrector name", ErrInvalidParam)
	}
	spec := Spec{Name: name}
	if rest == "" {
		return spec, nil
	}
	spec.Params = make(map[string]string)
	for _, part := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return Spec{}, fmt.Errorf("%w: %q is not key=value", ErrInvalidParam, part)
		}
		spec.Params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return spec, nil
}

// Factory builds a corrector from parameters.
type Factory func(params map[string]string) (Corrector, error)

// Registry maps names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry holding the built-in correctors.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister("noop", func(map[string]string) (Corrector, error) { return Noop{}, nil })
	r.MustRegister("dictionary", NewDictionaryFromParams)
	return r
}

// Register adds a factory. Names are unique.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return errors.New("corrector: name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("corrector: %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Build constructs a new instance from a spec.
func (r *Registry) Build(spec Spec) (Corrector, error) {
	r.mu.RLock()
	f, ok := r.factories[spec.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCorrector, spec.Name)
	}
	c, err := f(spec.Params)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("corrector: factory %q returned nil", spec.Name)
	}
	return c, nil
}

// Names lists registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
