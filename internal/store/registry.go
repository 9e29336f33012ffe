package store

import (
	"fmt"
	"sort"

	"github.com/engramlabs/engram/internal/config"
	"github.com/engramlabs/engram/internal/embedding"
)

// Factory constructs a backend from configuration.
type Factory func(cfg config.Config) (Memory, error)

// Registry maps backend names to factories. It is an explicit value
// constructed at startup and passed to whatever assembles the engine;
// there is no process-wide registration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in backends registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register("json", func(cfg config.Config) (Memory, error) {
		return NewJSONMemory(cfg.Memory.StorePath())
	})
	r.Register("sqlite", func(cfg config.Config) (Memory, error) {
		return NewSQLiteMemory(cfg.Memory.StorePath())
	})
	r.Register("none", func(config.Config) (Memory, error) {
		return NoneMemory{}, nil
	})

	return r
}

// Register adds or replaces a backend factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Has reports whether a backend name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open creates the configured backend and wires every configured policy
// into it: the embedder with its blend weights, recency decay, and
// knowledge decay. An unregistered backend name falls back to "none".
func (r *Registry) Open(cfg config.Config) (Memory, error) {
	name := cfg.Memory.Backend
	factory, ok := r.factories[name]
	if !ok {
		factory, ok = r.factories["none"]
		if !ok {
			return nil, fmt.Errorf("unknown memory backend %q", name)
		}
	}

	m, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s memory: %w", name, err)
	}

	if e := embedding.NewFromConfig(cfg.Embedding); e != nil {
		m.SetEmbedder(e, cfg.Memory.TextWeight, cfg.Memory.VectorWeight)
	}
	m.ApplyConfig(cfg.Memory)

	return m, nil
}
