package recognition

import (
	"fmt"
	"sort"
	"sync"

	"OCRPortal/internal/ports"
)

// Registry keeps a mapping from backend names to recognizer implementations.
type Registry struct {
	mu          sync.RWMutex
	recognizers map[string]ports.Recognizer
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{recognizers: map[string]ports.Recognizer{}}
}

// Register adds or replaces a recognizer implementation.
func (r *Registry) Register(recognizer ports.Recognizer) {
	if recognizer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recognizers == nil {
		r.recognizers = map[string]ports.Recognizer{}
	}
	r.recognizers[recognizer.Name()] = recognizer
}

// Resolve returns a recognizer by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.Recognizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if recognizer, ok := r.recognizers[name]; ok {
		return recognizer, nil
	}
	return nil, fmt.Errorf("recognizer %s is not registered (available: %v)", name, r.namesLocked())
}

// Names lists registered backends in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.recognizers))
	for name := range r.recognizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
