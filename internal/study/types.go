package study

// Study describes one engine run: the host model, its parameters and
// responses, the method to apply and which engine drives it.
type Study struct {
	Name                string       `yaml:"name" json:"name"`
	Model               string       `yaml:"model" json:"model"`
	Output              string       `yaml:"output,omitempty" json:"output,omitempty"` // silent, quiet, normal, verbose, debug
	Stdout              string       `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Stderr              string       `yaml:"stderr,omitempty" json:"stderr,omitempty"`
	TabularGraphicsData bool         `yaml:"tabular_graphics_data,omitempty" json:"tabular_graphics_data,omitempty"`
	Engine              Engine       `yaml:"engine" json:"engine"`
	Method              Method       `yaml:"method" json:"method"`
	Parameters          []Parameter  `yaml:"parameters" json:"parameters"`
	Objectives          []string     `yaml:"objectives" json:"objectives"`
	Constraints         []Constraint `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// Engine selects and configures the engine implementation.
type Engine struct {
	Kind       string `yaml:"kind" json:"kind"`                                 // dakota or mayfly
	Executable string `yaml:"executable,omitempty" json:"executable,omitempty"` // dakota binary
	Population int    `yaml:"population,omitempty" json:"population,omitempty"` // mayfly only
	Seed       int64  `yaml:"seed,omitempty" json:"seed,omitempty"`             // mayfly only
}

// Method holds the options of every method kind; only those of Kind apply.
type Method struct {
	Kind string `yaml:"kind" json:"kind"`

	// conmin
	MaxIterations          int     `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
	MaxFunctionEvaluations int     `yaml:"max_function_evaluations,omitempty" json:"max_function_evaluations,omitempty"`
	ConvergenceTolerance   float64 `yaml:"convergence_tolerance,omitempty" json:"convergence_tolerance,omitempty"`
	ConstraintTolerance    float64 `yaml:"constraint_tolerance,omitempty" json:"constraint_tolerance,omitempty"`
	FDGradientStepSize     float64 `yaml:"fd_gradient_step_size,omitempty" json:"fd_gradient_step_size,omitempty"`
	IntervalType           string  `yaml:"interval_type,omitempty" json:"interval_type,omitempty"`

	// multidim_parameter_study
	Partitions []int `yaml:"partitions,omitempty" json:"partitions,omitempty"`

	// vector_parameter_study
	FinalPoint []float64 `yaml:"final_point,omitempty" json:"final_point,omitempty"`
	NumSteps   int       `yaml:"num_steps,omitempty" json:"num_steps,omitempty"`

	// global_sensitivity
	SampleType string `yaml:"sample_type,omitempty" json:"sample_type,omitempty"`
	Seed       *int   `yaml:"seed,omitempty" json:"seed,omitempty"`
	Samples    int    `yaml:"samples,omitempty" json:"samples,omitempty"`
}

// Parameter is a design variable of the model. Missing bounds fall back to
// the unbounded sentinels.
type Parameter struct {
	Name  string   `yaml:"name" json:"name"`
	Low   *float64 `yaml:"low,omitempty" json:"low,omitempty"`
	High  *float64 `yaml:"high,omitempty" json:"high,omitempty"`
	Start *float64 `yaml:"start,omitempty" json:"start,omitempty"`
}

// Constraint compares a model variable against a constant.
type Constraint struct {
	Name string  `yaml:"name" json:"name"`
	LHS  string  `yaml:"lhs" json:"lhs"`
	Op   string  `yaml:"op" json:"op"`
	RHS  float64 `yaml:"rhs" json:"rhs"`
}
