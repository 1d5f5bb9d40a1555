package llms

import (
	"fmt"
	"sync"
)

// Registry holds named Client instances, letting a team config reference an
// LLM by name rather than wiring up concrete clients by hand.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(name string, client Client) error {
	if name == "" {
		return fmt.Errorf("llm name cannot be empty")
	}
	if client == nil {
		return fmt.Errorf("llm client cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	return nil
}

func (r *Registry) Get(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("llm %q not registered", name)
	}
	return client, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}
