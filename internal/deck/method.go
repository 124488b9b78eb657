package deck

import (
	"fmt"
	"strconv"
)

// Kind names a method variant.
type Kind string

const (
	KindOptimizer   Kind = "conmin"
	KindMultidim    Kind = "multidim_parameter_study"
	KindVector      Kind = "vector_parameter_study"
	KindSensitivity Kind = "global_sensitivity"
)

// Output is the engine's verbosity level.
type Output string

const (
	OutputSilent  Output = "silent"
	OutputQuiet   Output = "quiet"
	OutputNormal  Output = "normal"
	OutputVerbose Output = "verbose"
	OutputDebug   Output = "debug"
)

// Validate reports whether o is a known verbosity.
func (o Output) Validate() error {
	switch o {
	case OutputSilent, OutputQuiet, OutputNormal, OutputVerbose, OutputDebug:
		return nil
	}
	return configErr(fmt.Sprintf("invalid output %q (must be silent, quiet, normal, verbose or debug)", o))
}

// minTolerance is the smallest tolerance or step size the engine accepts.
const minTolerance = 1e-10

// Method is one of *Optimizer, *MultidimStudy, *VectorStudy or
// *SensitivityStudy. The set is closed.
type Method interface {
	Kind() Kind
	validate(params *ParameterSet, responses ResponseSpec) error
	methodLines(output Output, responses ResponseSpec) []string
	variableStyle() (uniform, needStart bool)
	responseLines(responses ResponseSpec) []string
}

// Optimizer runs CONMIN with numerical gradients.
type Optimizer struct {
	MaxIterations          int
	MaxFunctionEvaluations int
	ConvergenceTolerance   float64
	ConstraintTolerance    float64
	FDGradientStepSize     float64
	IntervalType           string // forward or central
}

// DefaultOptimizer returns CONMIN settings used when a study leaves them out.
func DefaultOptimizer() *Optimizer {
	return &Optimizer{
		MaxIterations:          100,
		MaxFunctionEvaluations: 1000,
		ConvergenceTolerance:   1e-7,
		ConstraintTolerance:    1e-7,
		FDGradientStepSize:     1e-5,
		IntervalType:           "forward",
	}
}

func (m *Optimizer) Kind() Kind { return KindOptimizer }

func (m *Optimizer) validate(_ *ParameterSet, responses ResponseSpec) error {
	if len(responses.Objectives) > 1 {
		return configErr(fmt.Sprintf("CONMIN supports a single objective, got %d", len(responses.Objectives)))
	}
	if m.MaxIterations < 1 {
		return configErr("max_iterations must be >= 1")
	}
	if m.MaxFunctionEvaluations < 1 {
		return configErr("max_function_evaluations must be >= 1")
	}
	if m.ConvergenceTolerance < minTolerance {
		return configErr("convergence_tolerance must be >= 1e-10")
	}
	if m.ConstraintTolerance < minTolerance {
		return configErr("constraint_tolerance must be >= 1e-10")
	}
	if m.FDGradientStepSize < minTolerance {
		return configErr("fd_gradient_step_size must be >= 1e-10")
	}
	if m.IntervalType != "forward" && m.IntervalType != "central" {
		return configErr(fmt.Sprintf("invalid interval_type %q (must be forward or central)", m.IntervalType))
	}
	return nil
}

func (m *Optimizer) methodLines(output Output, responses ResponseSpec) []string {
	constrained := len(responses.Constraints) > 0
	name := "conmin_frcg"
	if constrained {
		name = "conmin_mfd"
	}
	lines := []string{
		name,
		"    output = " + string(output),
		"    max_iterations = " + strconv.Itoa(m.MaxIterations),
		"    max_function_evaluations = " + strconv.Itoa(m.MaxFunctionEvaluations),
		"    convergence_tolerance = " + formatFloat(m.ConvergenceTolerance),
	}
	if constrained {
		lines = append(lines, "    constraint_tolerance = "+formatFloat(m.ConstraintTolerance))
	}
	return lines
}

func (m *Optimizer) variableStyle() (bool, bool) { return false, true }

func (m *Optimizer) responseLines(responses ResponseSpec) []string {
	lines := []string{"objective_functions = " + strconv.Itoa(len(responses.Objectives))}
	if len(responses.Constraints) > 0 {
		lines = append(lines, "nonlinear_inequality_constraints = "+strconv.Itoa(len(responses.Constraints)))
	}
	return append(lines,
		"numerical_gradients",
		"    method_source dakota",
		"    interval_type "+m.IntervalType,
		"    fd_gradient_step_size = "+formatFloat(m.FDGradientStepSize),
		"    no_hessians",
	)
}

// MultidimStudy evaluates a full grid with the given partitions per parameter.
type MultidimStudy struct {
	Partitions []int
}

func (m *MultidimStudy) Kind() Kind { return KindMultidim }

func (m *MultidimStudy) validate(params *ParameterSet, _ ResponseSpec) error {
	if len(m.Partitions) != params.Len() {
		return configErr(fmt.Sprintf("#partitions (%d) != #parameters (%d)", len(m.Partitions), params.Len()))
	}
	for i, p := range m.Partitions {
		if p < 1 {
			return configErr(fmt.Sprintf("partitions[%d] must be >= 1", i))
		}
	}
	return nil
}

func (m *MultidimStudy) methodLines(output Output, _ ResponseSpec) []string {
	return []string{
		"multidim_parameter_study",
		"    output = " + string(output),
		"    partitions = " + joinInts(m.Partitions),
	}
}

func (m *MultidimStudy) variableStyle() (bool, bool) { return false, false }

func (m *MultidimStudy) responseLines(responses ResponseSpec) []string {
	return plainResponses(responses)
}

// VectorStudy walks from the initial point to FinalPoint in NumSteps steps.
type VectorStudy struct {
	FinalPoint []float64
	NumSteps   int
}

func (m *VectorStudy) Kind() Kind { return KindVector }

func (m *VectorStudy) validate(params *ParameterSet, _ ResponseSpec) error {
	if len(m.FinalPoint) != params.Len() {
		return configErr(fmt.Sprintf("#final_point (%d) != #parameters (%d)", len(m.FinalPoint), params.Len()))
	}
	if m.NumSteps < 1 {
		return configErr("num_steps must be >= 1")
	}
	return nil
}

// The engine accepts output ahead of the method keyword here; keep it there.
func (m *VectorStudy) methodLines(output Output, _ ResponseSpec) []string {
	return []string{
		"output = " + string(output),
		"vector_parameter_study",
		"    final_point = " + joinFloats(m.FinalPoint),
		"    num_steps = " + strconv.Itoa(m.NumSteps),
	}
}

func (m *VectorStudy) variableStyle() (bool, bool) { return false, false }

func (m *VectorStudy) responseLines(responses ResponseSpec) []string {
	return plainResponses(responses)
}

// SensitivityStudy samples uniformly distributed parameters.
type SensitivityStudy struct {
	SampleType string // random or lhs
	Seed       int
	Samples    int
}

// DefaultSensitivityStudy returns the sampling settings used when a study
// leaves them out.
func DefaultSensitivityStudy() *SensitivityStudy {
	return &SensitivityStudy{SampleType: "lhs", Seed: 52983, Samples: 100}
}

func (m *SensitivityStudy) Kind() Kind { return KindSensitivity }

func (m *SensitivityStudy) validate(_ *ParameterSet, _ ResponseSpec) error {
	if m.SampleType != "random" && m.SampleType != "lhs" {
		return configErr(fmt.Sprintf("invalid sample_type %q (must be random or lhs)", m.SampleType))
	}
	if m.Samples < 1 {
		return configErr("samples must be >= 1")
	}
	return nil
}

func (m *SensitivityStudy) methodLines(output Output, _ ResponseSpec) []string {
	return []string{
		"sampling",
		"    output = " + string(output),
		"    sample_type = " + m.SampleType,
		"    seed = " + strconv.Itoa(m.Seed),
		"    samples = " + strconv.Itoa(m.Samples),
	}
}

func (m *SensitivityStudy) variableStyle() (bool, bool) { return true, false }

func (m *SensitivityStudy) responseLines(responses ResponseSpec) []string {
	return []string{
		"num_response_functions = " + strconv.Itoa(len(responses.Objectives)),
		"response_descriptors = " + joinQuoted(responses.Objectives),
		"no_gradients",
		"no_hessians",
	}
}

func plainResponses(responses ResponseSpec) []string {
	return []string{
		"objective_functions = " + strconv.Itoa(len(responses.Objectives)),
		"no_gradients",
		"no_hessians",
	}
}
