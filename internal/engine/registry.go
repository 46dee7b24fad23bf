package engine

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps step type identifiers to processors. Registration happens
// at composition time; lookups at campaign validation and step execution.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]Processor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		procs: make(map[string]Processor),
	}
}

// Register binds a processor to a step type identifier.
func (r *Registry) Register(typeID string, p Processor) error {
	if typeID == "" {
		return fmt.Errorf("step type identifier must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.procs[typeID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStepType, typeID)
	}

	r.procs[typeID] = p
	return nil
}

// Lookup returns the processor for a step type identifier.
func (r *Registry) Lookup(typeID string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.procs[typeID]
	return p, ok
}

// Types returns all registered step type identifiers, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.procs))
	for t := range r.procs {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
