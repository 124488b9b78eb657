package model

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Component is a host model: named float variables plus an Execute step
// that recomputes its outputs from its inputs.
type Component interface {
	Set(name string, v float64) error
	Get(name string) (float64, error)
	Execute(ctx context.Context) error
}

// Factory builds a fresh component.
type Factory func() Component

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a component kind available to New. It panics on duplicates.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[kind]; dup {
		panic("model: duplicate component kind " + kind)
	}
	registry[kind] = f
}

// New builds a component of the given kind.
func New(kind string) (Component, error) {
	registryMu.RLock()
	f, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", kind)
	}
	return f(), nil
}

// Kinds lists the registered component kinds.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// funcComponent keeps inputs and outputs in one variable table and computes
// outputs with a plain function.
type funcComponent struct {
	inputs  []string
	outputs []string
	vars    map[string]float64
	compute func(in map[string]float64) (map[string]float64, error)
}

func newFuncComponent(inputs, outputs []string, compute func(map[string]float64) (map[string]float64, error)) *funcComponent {
	vars := make(map[string]float64, len(inputs)+len(outputs))
	for _, n := range inputs {
		vars[n] = 0
	}
	for _, n := range outputs {
		vars[n] = 0
	}
	return &funcComponent{inputs: inputs, outputs: outputs, vars: vars, compute: compute}
}

func (c *funcComponent) isInput(name string) bool {
	for _, n := range c.inputs {
		if n == name {
			return true
		}
	}
	return false
}

func (c *funcComponent) Set(name string, v float64) error {
	if !c.isInput(name) {
		return fmt.Errorf("no input named %q", name)
	}
	c.vars[name] = v
	return nil
}

func (c *funcComponent) Get(name string) (float64, error) {
	v, ok := c.vars[name]
	if !ok {
		return 0, fmt.Errorf("no variable named %q", name)
	}
	return v, nil
}

func (c *funcComponent) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := c.compute(c.vars)
	if err != nil {
		return err
	}
	for k, v := range out {
		c.vars[k] = v
	}
	return nil
}
