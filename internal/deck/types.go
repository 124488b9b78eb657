package deck

import "fmt"

// Sentinel bounds for parameters that have no meaningful limits.
const (
	UnboundedLow  = -1e10
	UnboundedHigh = 1e10
)

// Parameter is one continuous design variable.
type Parameter struct {
	Name  string
	Low   float64
	High  float64
	Start *float64 // nil means midpoint of the bounds
}

// NewParameter returns a bounded parameter without a start value.
func NewParameter(name string, low, high float64) Parameter {
	return Parameter{Name: name, Low: low, High: high}
}

// WithStart returns a copy of p starting at v.
func (p Parameter) WithStart(v float64) Parameter {
	p.Start = &v
	return p
}

// Initial returns the start value, or the midpoint of the bounds.
func (p Parameter) Initial() float64 {
	if p.Start != nil {
		return *p.Start
	}
	return (p.Low + p.High) / 2
}

func (p Parameter) validate() error {
	if p.Name == "" {
		return configErr("parameter name cannot be empty")
	}
	if p.Low > p.High {
		return configErr(fmt.Sprintf("parameter %s: low (%s) > high (%s)",
			p.Name, formatFloat(p.Low), formatFloat(p.High)))
	}
	if p.Start != nil && (*p.Start < p.Low || *p.Start > p.High) {
		return configErr(fmt.Sprintf("parameter %s: start (%s) outside [%s, %s]",
			p.Name, formatFloat(*p.Start), formatFloat(p.Low), formatFloat(p.High)))
	}
	return nil
}

// ParameterSet is an ordered collection of parameters. The order is the
// positional order of the engine's continuous variable array.
type ParameterSet struct {
	params []Parameter
	index  map[string]int
}

// NewParameterSet builds a set from params, keeping their order.
func NewParameterSet(params ...Parameter) (*ParameterSet, error) {
	ps := &ParameterSet{}
	for _, p := range params {
		if err := ps.Add(p); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// Add appends p. Names must be unique.
func (ps *ParameterSet) Add(p Parameter) error {
	if err := p.validate(); err != nil {
		return err
	}
	if ps.index == nil {
		ps.index = make(map[string]int)
	}
	if _, dup := ps.index[p.Name]; dup {
		return configErr("duplicate parameter: " + p.Name)
	}
	ps.index[p.Name] = len(ps.params)
	ps.params = append(ps.params, p)
	return nil
}

// Len returns the number of parameters.
func (ps *ParameterSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.params)
}

// All returns the parameters in declaration order.
func (ps *ParameterSet) All() []Parameter {
	if ps == nil {
		return nil
	}
	out := make([]Parameter, len(ps.params))
	copy(out, ps.params)
	return out
}

// Names returns the parameter names in declaration order.
func (ps *ParameterSet) Names() []string {
	names := make([]string, 0, ps.Len())
	for _, p := range ps.All() {
		names = append(names, p.Name)
	}
	return names
}

// Get looks a parameter up by name.
func (ps *ParameterSet) Get(name string) (Parameter, bool) {
	if ps == nil {
		return Parameter{}, false
	}
	i, ok := ps.index[name]
	if !ok {
		return Parameter{}, false
	}
	return ps.params[i], true
}

// LowerBounds returns the lower bounds in declaration order.
func (ps *ParameterSet) LowerBounds() []float64 {
	out := make([]float64, 0, ps.Len())
	for _, p := range ps.All() {
		out = append(out, p.Low)
	}
	return out
}

// UpperBounds returns the upper bounds in declaration order.
func (ps *ParameterSet) UpperBounds() []float64 {
	out := make([]float64, 0, ps.Len())
	for _, p := range ps.All() {
		out = append(out, p.High)
	}
	return out
}

// InitialPoint returns each parameter's start value in declaration order.
func (ps *ParameterSet) InitialPoint() []float64 {
	out := make([]float64, 0, ps.Len())
	for _, p := range ps.All() {
		out = append(out, p.Initial())
	}
	return out
}

// ResponseSpec describes what the engine gets back from each evaluation.
// Gradients and Hessians are never requested.
type ResponseSpec struct {
	Objectives  []string
	Constraints []string // nonlinear inequality constraints
}

// Count returns the total number of responses, objectives first.
func (r ResponseSpec) Count() int {
	return len(r.Objectives) + len(r.Constraints)
}

// Names returns all response names in the order the engine sees them.
func (r ResponseSpec) Names() []string {
	names := make([]string, 0, r.Count())
	names = append(names, r.Objectives...)
	return append(names, r.Constraints...)
}
