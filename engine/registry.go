package engine

import (
	"fmt"
	"sort"
	"sync"
)

// ============================================================================
// REGISTRY — name → capability lookup
// ============================================================================
// Build one per item type, populate it, then hand it to any number of
// builds. Lookups never fall back to a default: a miss is an
// UnknownCapabilityError carrying the namespace and name.
// ============================================================================

// named is one namespace of a Registry.
type named[V any] struct {
	ns      Namespace
	entries map[string]V
}

func newNamed[V any](ns Namespace) named[V] {
	return named[V]{ns: ns, entries: make(map[string]V)}
}

func (n named[V]) register(name string, v V) error {
	if name == "" {
		return fmt.Errorf("%s: %w", n.ns, ErrEmptyName)
	}
	n.entries[name] = v
	return nil
}

func (n named[V]) lookup(name string) (V, error) {
	v, ok := n.entries[name]
	if !ok {
		var zero V
		return zero, &UnknownCapabilityError{Namespace: n.ns, Name: name}
	}
	return v, nil
}

func (n named[V]) find(names []string) ([]V, error) {
	out := make([]V, len(names))
	for i, name := range names {
		v, err := n.lookup(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (n named[V]) names() []string {
	out := make([]string, 0, len(n.entries))
	for name := range n.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Registry holds the mappers, reducers and saved requests available to builds over items of type T.
type Registry[T any] struct {
	mu        sync.RWMutex
	mappers   named[Mapper[T]]
	reducers  named[Reducer]
	factories named[Request]
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		mappers:   newNamed[Mapper[T]](NamespaceMapper),
		reducers:  newNamed[Reducer](NamespaceReducer),
		factories: newNamed[Request](NamespaceFactory),
	}
}

// Register stores a Mapper[T] or a Reducer under its name, replacing any previous entry.
// A value implementing both is registered in both namespaces.
func (r *Registry[T]) Register(c Capability) error {
	registered := false
	if m, ok := c.(Mapper[T]); ok {
		if err := r.RegisterMapper(m); err != nil {
			return err
		}
		registered = true
	}
	if red, ok := c.(Reducer); ok {
		if err := r.RegisterReducer(red); err != nil {
			return err
		}
		registered = true
	}
	if !registered {
		return fmt.Errorf("%w: %T", ErrUnsupportedCapability, c)
	}
	return nil
}

// RegisterMapper stores m under m.Name().
func (r *Registry[T]) RegisterMapper(m Mapper[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mappers.register(m.Name(), m)
}

// RegisterReducer stores red under red.Name().
func (r *Registry[T]) RegisterReducer(red Reducer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reducers.register(red.Name(), red)
}

// RegisterFactory saves a request under its name so it can be built later by name.
func (r *Registry[T]) RegisterFactory(req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.factories.register(req.Name, req.clone())
}

// Mapper looks up a mapper by name.
func (r *Registry[T]) Mapper(name string) (Mapper[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mappers.lookup(name)
}

// Reducer looks up a reducer by name.
func (r *Registry[T]) Reducer(name string) (Reducer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reducers.lookup(name)
}

// Factory looks up a saved request by name.
func (r *Registry[T]) Factory(name string) (Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, err := r.factories.lookup(name)
	if err != nil {
		return Request{}, err
	}
	return req.clone(), nil
}

// FindMappers resolves names in order, keeping duplicates. It stops at the first unknown name.
func (r *Registry[T]) FindMappers(names []string) ([]Mapper[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mappers.find(names)
}

// FindReducers resolves names in order, keeping duplicates. It stops at the first unknown name.
func (r *Registry[T]) FindReducers(names []string) ([]Reducer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reducers.find(names)
}

// MapperNames lists registered mapper names, sorted.
func (r *Registry[T]) MapperNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mappers.names()
}

// ReducerNames lists registered reducer names, sorted.
func (r *Registry[T]) ReducerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reducers.names()
}

// FactoryNames lists saved request names, sorted.
func (r *Registry[T]) FactoryNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories.names()
}

// Build returns a Factory for req bound to this registry's item type.
func (r *Registry[T]) Build(req Request, opts ...Option) (*Factory[T], error) {
	return NewFactory[T](req, opts...)
}

// BuildNamed builds the saved request registered under name.
func (r *Registry[T]) BuildNamed(name string, opts ...Option) (*Factory[T], error) {
	req, err := r.Factory(name)
	if err != nil {
		return nil, err
	}
	return NewFactory[T](req, opts...)
}
