package controltree

import "sync"

// Resolver locates a control constructor by type name. It models the
// external class-loading collaborator: the engine never performs dynamic
// symbol lookup itself, it only consults a Resolver and caches the result
// per container.
type Resolver interface {
	Resolve(typeName string) (NewControlFunc, bool)
}

// Registry is a plain name-to-constructor Resolver populated by an explicit
// registration step.
type Registry struct {
	mu    sync.Mutex
	types map[string]NewControlFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]NewControlFunc)}
}

// Register adds a constructor under typeName, replacing any previous entry.
func (r *Registry) Register(typeName string, newFunc NewControlFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeName] = newFunc
}

// Resolve implements Resolver.
func (r *Registry) Resolve(typeName string) (NewControlFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.types[typeName]
	return fn, ok
}

// TypeNames returns all registered type names in sorted order.
func (r *Registry) TypeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.types)
}
