package study

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/dakotadriver/internal/bridge"
	"github.com/cwbudde/dakotadriver/internal/deck"
	"github.com/cwbudde/dakotadriver/internal/model"
)

// Engine kinds.
const (
	EngineDakota = "dakota"
	EngineMayfly = "mayfly"
)

// Load reads and parses a study file.
func Load(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read study file %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse study file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a study from YAML (or JSON) bytes, fills defaults and
// validates its structure. Deck-level rules such as "no parameters" are
// left to deck.Assemble so they surface as configuration errors at run time.
func Parse(data []byte) (*Study, error) {
	var s Study
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty study")
		}
		return nil, fmt.Errorf("failed to parse study yaml: %w", err)
	}

	s.applyDefaults()
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid study: %w", err)
	}
	return &s, nil
}

// Marshal encodes the study back to YAML.
func (s *Study) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func (s *Study) applyDefaults() {
	if s.Name == "" {
		s.Name = "driver"
	}
	if s.Output == "" {
		s.Output = string(deck.OutputNormal)
	}
	if s.Engine.Kind == "" {
		s.Engine.Kind = EngineDakota
	}
	if s.Engine.Kind == EngineDakota && s.Engine.Executable == "" {
		s.Engine.Executable = "dakota"
	}
	if s.Engine.Kind == EngineMayfly {
		if s.Engine.Population <= 0 {
			s.Engine.Population = 20
		}
		if s.Engine.Seed == 0 {
			s.Engine.Seed = 42
		}
	}

	m := &s.Method
	switch deck.Kind(m.Kind) {
	case deck.KindOptimizer:
		def := deck.DefaultOptimizer()
		if m.MaxIterations == 0 {
			m.MaxIterations = def.MaxIterations
		}
		if m.MaxFunctionEvaluations == 0 {
			m.MaxFunctionEvaluations = def.MaxFunctionEvaluations
		}
		if m.ConvergenceTolerance == 0 {
			m.ConvergenceTolerance = def.ConvergenceTolerance
		}
		if m.ConstraintTolerance == 0 {
			m.ConstraintTolerance = def.ConstraintTolerance
		}
		if m.FDGradientStepSize == 0 {
			m.FDGradientStepSize = def.FDGradientStepSize
		}
		if m.IntervalType == "" {
			m.IntervalType = def.IntervalType
		}
	case deck.KindVector:
		if m.NumSteps == 0 {
			m.NumSteps = 1
		}
	case deck.KindSensitivity:
		def := deck.DefaultSensitivityStudy()
		if m.SampleType == "" {
			m.SampleType = def.SampleType
		}
		if m.Seed == nil {
			seed := def.Seed
			m.Seed = &seed
		}
		if m.Samples == 0 {
			m.Samples = def.Samples
		}
	}
}

func (s *Study) validate() error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if _, err := model.New(s.Model); err != nil {
		return err
	}

	switch s.Engine.Kind {
	case EngineDakota, EngineMayfly:
	default:
		return fmt.Errorf("unknown engine: %s (must be dakota or mayfly)", s.Engine.Kind)
	}

	switch deck.Kind(s.Method.Kind) {
	case deck.KindOptimizer, deck.KindMultidim, deck.KindVector, deck.KindSensitivity:
	case "":
		return fmt.Errorf("method kind is required")
	default:
		return fmt.Errorf("unknown method: %s", s.Method.Kind)
	}

	if s.Engine.Kind == EngineMayfly {
		if deck.Kind(s.Method.Kind) != deck.KindOptimizer {
			return fmt.Errorf("mayfly engine only runs the %s method", deck.KindOptimizer)
		}
		if len(s.Constraints) > 0 {
			return fmt.Errorf("mayfly engine does not support constraints")
		}
	}

	for i, p := range s.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameters[%d]: name cannot be empty", i)
		}
	}
	for i, o := range s.Objectives {
		if o == "" {
			return fmt.Errorf("objectives[%d]: name cannot be empty", i)
		}
	}
	for i, c := range s.Constraints {
		if c.Name == "" {
			return fmt.Errorf("constraints[%d]: name cannot be empty", i)
		}
		if c.LHS == "" {
			return fmt.Errorf("constraint %s: lhs cannot be empty", c.Name)
		}
		if _, err := bridge.ParseOperator(c.Op); err != nil {
			return fmt.Errorf("constraint %s: %w", c.Name, err)
		}
	}
	return nil
}

// ValidateName checks that name can be used as a file base name inside a
// run directory.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("invalid study name %q: must be a plain file name", name)
	}
	return nil
}
