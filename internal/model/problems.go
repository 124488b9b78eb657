package model

import (
	"fmt"
	"math"
)

func init() {
	Register("rosenbrock", NewRosenbrock)
	Register("textbook", NewTextbook)
	Register("broken", NewBroken)
}

// NewRosenbrock is the two-dimensional Rosenbrock function, minimum f=0 at (1, 1).
func NewRosenbrock() Component {
	return newFuncComponent([]string{"x1", "x2"}, []string{"f"}, func(v map[string]float64) (map[string]float64, error) {
		x1, x2 := v["x1"], v["x2"]
		return map[string]float64{
			"f": 100*math.Pow(x2-x1*x1, 2) + math.Pow(1-x1, 2),
		}, nil
	})
}

// NewTextbook is the engine's text_book problem with its two nonlinear
// constraints g1 and g2.
func NewTextbook() Component {
	return newFuncComponent([]string{"x1", "x2"}, []string{"f", "g1", "g2"}, func(v map[string]float64) (map[string]float64, error) {
		x1, x2 := v["x1"], v["x2"]
		return map[string]float64{
			"f":  math.Pow(x1-1, 4) + math.Pow(x2-1, 4),
			"g1": x1*x1 - x2/2,
			"g2": x2*x2 - x1/2,
		}, nil
	})
}

// NewBroken fails on every evaluation.
func NewBroken() Component {
	return newFuncComponent([]string{"x1", "x2"}, []string{"f"}, func(v map[string]float64) (map[string]float64, error) {
		return nil, fmt.Errorf("evaluating x1=%g, x2=%g", v["x1"], v["x2"])
	})
}
