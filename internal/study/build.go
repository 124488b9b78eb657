package study

import (
	"fmt"

	"github.com/cwbudde/dakotadriver/internal/bridge"
	"github.com/cwbudde/dakotadriver/internal/deck"
	"github.com/cwbudde/dakotadriver/internal/model"
)

// ParameterSet converts the declared parameters, in order.
func (s *Study) ParameterSet() (*deck.ParameterSet, error) {
	ps := &deck.ParameterSet{}
	for _, p := range s.Parameters {
		dp := deck.NewParameter(p.Name, deck.UnboundedLow, deck.UnboundedHigh)
		if p.Low != nil {
			dp.Low = *p.Low
		}
		if p.High != nil {
			dp.High = *p.High
		}
		if p.Start != nil {
			dp = dp.WithStart(*p.Start)
		}
		if err := ps.Add(dp); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// ResponseSpec lists objectives then constraints by name.
func (s *Study) ResponseSpec() deck.ResponseSpec {
	spec := deck.ResponseSpec{Objectives: append([]string(nil), s.Objectives...)}
	for _, c := range s.Constraints {
		spec.Constraints = append(spec.Constraints, c.Name)
	}
	return spec
}

// MethodSpec converts the method options into the deck variant for Kind.
func (s *Study) MethodSpec() (deck.Method, error) {
	m := s.Method
	switch deck.Kind(m.Kind) {
	case deck.KindOptimizer:
		return &deck.Optimizer{
			MaxIterations:          m.MaxIterations,
			MaxFunctionEvaluations: m.MaxFunctionEvaluations,
			ConvergenceTolerance:   m.ConvergenceTolerance,
			ConstraintTolerance:    m.ConstraintTolerance,
			FDGradientStepSize:     m.FDGradientStepSize,
			IntervalType:           m.IntervalType,
		}, nil
	case deck.KindMultidim:
		return &deck.MultidimStudy{Partitions: append([]int(nil), m.Partitions...)}, nil
	case deck.KindVector:
		return &deck.VectorStudy{FinalPoint: append([]float64(nil), m.FinalPoint...), NumSteps: m.NumSteps}, nil
	case deck.KindSensitivity:
		seed := deck.DefaultSensitivityStudy().Seed
		if m.Seed != nil {
			seed = *m.Seed
		}
		return &deck.SensitivityStudy{SampleType: m.SampleType, Seed: seed, Samples: m.Samples}, nil
	}
	return nil, fmt.Errorf("unknown method: %s", m.Kind)
}

// Deck assembles the engine input for this study.
func (s *Study) Deck() (*deck.Deck, error) {
	params, err := s.ParameterSet()
	if err != nil {
		return nil, err
	}
	method, err := s.MethodSpec()
	if err != nil {
		return nil, err
	}
	return deck.Assemble(params, s.ResponseSpec(), method, deck.Options{
		Output:              deck.Output(s.Output),
		TabularGraphicsData: s.TabularGraphicsData,
	})
}

// NewModel builds a fresh host model for one run.
func (s *Study) NewModel() (model.Component, error) {
	return model.New(s.Model)
}

// Bridge wires c into an evaluation bridge with responses in declared order.
func (s *Study) Bridge(c model.Component) (*bridge.Bridge, error) {
	params, err := s.ParameterSet()
	if err != nil {
		return nil, err
	}

	objectives := make([]bridge.Response, 0, len(s.Objectives))
	for _, name := range s.Objectives {
		objectives = append(objectives, model.Output(c, name))
	}

	constraints := make([]bridge.Response, 0, len(s.Constraints))
	for _, k := range s.Constraints {
		op, err := bridge.ParseOperator(k.Op)
		if err != nil {
			return nil, fmt.Errorf("constraint %s: %w", k.Name, err)
		}
		constraints = append(constraints, model.Constraint(c, k.Name, k.LHS, op, k.RHS))
	}

	return bridge.New(model.Host(c), params.Names(), objectives, constraints), nil
}
