package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds registered handlers and resolves their activation order.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Name()
	if name == "" {
		return fmt.Errorf("handler has empty name")
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler '%s' already registered", name)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[name]
	if !exists {
		return nil, fmt.Errorf("handler '%s' not found", name)
	}
	return h, nil
}

// LoadOrder returns handler names topologically sorted so that every
// handler appears after its dependencies. Ties break alphabetically for
// determinism.
func (r *Registry) LoadOrder() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := make(map[string][]string) // dependency -> dependents
	inDegree := make(map[string]int)

	for name, h := range r.handlers {
		inDegree[name] = len(h.Dependencies())
		for _, dep := range h.Dependencies() {
			if _, exists := r.handlers[dep]; !exists {
				return nil, fmt.Errorf("handler '%s' has unknown dependency '%s'", name, dep)
			}
			graph[dep] = append(graph[dep], name)
		}
	}

	queue := make([]string, 0)
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(r.handlers))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		dependents := graph[current]
		sort.Strings(dependents)
		for _, dep := range dependents {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(r.handlers) {
		return nil, fmt.Errorf("circular dependency detected among handlers")
	}
	return result, nil
}
