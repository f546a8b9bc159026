package sched

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maps action names to units. Pure lookup table; no execution logic.
type Registry struct {
	mu    sync.RWMutex
	units map[string]ActionUnit
	order []string
}

func NewRegistry() *Registry {
	return &Registry{units: map[string]ActionUnit{}}
}

func (r *Registry) Register(u ActionUnit) error {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return fmt.Errorf("register action: name is required")
	}
	if u.Run == nil {
		return fmt.Errorf("register action %q: run func is required", name)
	}
	u.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[name]; ok {
		return fmt.Errorf("register action %q: %w", name, ErrDuplicateName)
	}
	r.units[name] = u
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (ActionUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	if !ok {
		return ActionUnit{}, fmt.Errorf("action %q: %w", name, ErrNotFound)
	}
	return u, nil
}

// Names lists registered actions in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
