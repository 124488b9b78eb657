package model

import (
	"context"

	"github.com/cwbudde/dakotadriver/internal/bridge"
)

type host struct {
	c Component
}

// Host adapts a component to the bridge's host contract.
func Host(c Component) bridge.Host {
	return host{c: c}
}

func (h host) SetParameter(name string, v float64) error {
	return h.c.Set(name, v)
}

func (h host) Evaluate(ctx context.Context) error {
	return h.c.Execute(ctx)
}

type output struct {
	c    Component
	name string
}

// Output reads a component variable as a plain value response.
func Output(c Component, name string) bridge.Response {
	return output{c: c, name: name}
}

func (o output) Name() string { return o.name }

func (o output) Evaluate(ctx context.Context) (bridge.Outcome, error) {
	v, err := o.c.Get(o.name)
	if err != nil {
		return bridge.Outcome{}, err
	}
	return bridge.Value(v), nil
}

type constraint struct {
	c    Component
	name string
	lhs  string
	op   bridge.Operator
	rhs  float64
}

// Constraint compares a component variable against a constant.
func Constraint(c Component, name, lhs string, op bridge.Operator, rhs float64) bridge.Response {
	return constraint{c: c, name: name, lhs: lhs, op: op, rhs: rhs}
}

func (k constraint) Name() string { return k.name }

func (k constraint) Evaluate(ctx context.Context) (bridge.Outcome, error) {
	lhs, err := k.c.Get(k.lhs)
	if err != nil {
		return bridge.Outcome{}, err
	}
	return bridge.Relation(lhs, k.rhs, k.op, !k.op.Satisfied(lhs, k.rhs)), nil
}
