package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrProviderNotFound is returned when no backend is registered under a name
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when a name is registered twice
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// ProviderStatus is the outcome of probing one generation backend
type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Registry holds the generation backends the service was configured with.
// The completer resolves its backend here and readiness probes every entry.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Provider)}
}

// Register adds a backend under its own Name()
func (r *Registry) Register(backend Provider) error {
	if backend == nil {
		return errors.New("provider cannot be nil")
	}
	name := backend.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, name)
	}
	r.backends[name] = backend
	return nil
}

// Resolve returns the backend registered under name
func (r *Registry) Resolve(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, exists := r.backends[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return backend, nil
}

// Names returns the registered backend names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Probe asks every backend whether it is reachable. Checks run concurrently
// and share ctx, so the caller's deadline bounds the whole probe.
// Results follow the order of Names.
func (r *Registry) Probe(ctx context.Context) []ProviderStatus {
	names := r.Names()
	statuses := make([]ProviderStatus, len(names))

	var g errgroup.Group
	for i, name := range names {
		backend, err := r.Resolve(name)
		if err != nil {
			statuses[i] = ProviderStatus{Name: name}
			continue
		}
		g.Go(func() error {
			statuses[i] = ProviderStatus{Name: name, Available: backend.IsAvailable(ctx)}
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}
