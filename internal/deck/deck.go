package deck

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const tabularKeyword = "tabular_graphics_data"

// Options are the settings shared by every method kind.
type Options struct {
	Output Output // defaults to OutputNormal

	// TabularGraphicsData makes the engine record every evaluation to
	// dakota_tabular.dat.
	TabularGraphicsData bool
}

// Deck is an assembled engine input: five ordered sections of lines, plus
// the structured inputs they were assembled from.
type Deck struct {
	Strategy  []string
	Method    []string
	Model     []string
	Variables []string
	Responses []string

	Params     *ParameterSet
	Spec       ResponseSpec
	MethodSpec Method
}

// Section is a named block of deck lines.
type Section struct {
	Name  string
	Lines []string
}

// Assemble validates the inputs and renders every section of the deck.
func Assemble(params *ParameterSet, responses ResponseSpec, method Method, opts Options) (*Deck, error) {
	if params.Len() == 0 {
		return nil, configErr("No parameters, run aborted")
	}
	if len(responses.Objectives) == 0 {
		return nil, configErr("No objectives, run aborted")
	}
	if method == nil {
		return nil, configErr("Method not set")
	}
	if len(responses.Constraints) > 0 && method.Kind() != KindOptimizer {
		return nil, configErr(fmt.Sprintf("%s does not support constraints", method.Kind()))
	}
	if opts.Output == "" {
		opts.Output = OutputNormal
	}
	if err := opts.Output.Validate(); err != nil {
		return nil, err
	}
	if err := method.validate(params, responses); err != nil {
		return nil, err
	}

	d := &Deck{
		Strategy:   []string{"single_method"},
		Method:     method.methodLines(opts.Output, responses),
		Model:      []string{"single"},
		Responses:  method.responseLines(responses),
		Params:     params,
		Spec:       responses,
		MethodSpec: method,
	}
	uniform, needStart := method.variableStyle()
	d.setVariables(needStart, uniform)
	d.SetTabularGraphicsData(opts.TabularGraphicsData)
	return d, nil
}

func (d *Deck) setVariables(needStart, uniform bool) {
	n := strconv.Itoa(d.Params.Len())
	if uniform {
		d.Variables = []string{"uniform_uncertain = " + n}
	} else {
		d.Variables = []string{"continuous_design = " + n}
	}
	if needStart {
		d.Variables = append(d.Variables, "    initial_point "+joinFloats(d.Params.InitialPoint()))
	}
	d.Variables = append(d.Variables,
		"    lower_bounds  "+joinFloats(d.Params.LowerBounds()),
		"    upper_bounds  "+joinFloats(d.Params.UpperBounds()),
		"    descriptors   "+joinQuoted(d.Params.Names()),
	)
}

// SetTabularGraphicsData adds or removes the tabular history keyword in the
// strategy section. The keyword appears at most once.
func (d *Deck) SetTabularGraphicsData(on bool) {
	kept := d.Strategy[:0]
	for _, line := range d.Strategy {
		fields := strings.Fields(line)
		if !containsToken(fields, tabularKeyword) {
			kept = append(kept, line)
			continue
		}
		rest := removeToken(fields, tabularKeyword)
		if len(rest) > 0 {
			kept = append(kept, indentOf(line)+strings.Join(rest, " "))
		}
	}
	d.Strategy = kept
	if on {
		d.Strategy = append(d.Strategy, tabularKeyword)
	}
}

// Validate checks every section has been populated.
func (d *Deck) Validate() error {
	if len(d.Strategy) == 0 {
		return configErr("Strategy not set")
	}
	if len(d.Method) == 0 {
		return configErr("Method not set")
	}
	if len(d.Model) == 0 {
		return configErr("Model not set")
	}
	if len(d.Variables) == 0 {
		return configErr("Variables not set")
	}
	if len(d.Responses) == 0 {
		return configErr("Responses not set")
	}
	return nil
}

// Sections returns the five sections in engine order.
func (d *Deck) Sections() []Section {
	return []Section{
		{Name: "strategy", Lines: d.Strategy},
		{Name: "method", Lines: d.Method},
		{Name: "model", Lines: d.Model},
		{Name: "variables", Lines: d.Variables},
		{Name: "responses", Lines: d.Responses},
	}
}

// WriteTo writes the deck without an interface section.
func (d *Deck) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf, nil); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

// Encode writes all sections followed by iface, when given, as the
// interface section. Each section keyword sits on its own line and its
// lines are indented by four spaces.
func (d *Deck) Encode(w io.Writer, iface []string) error {
	if err := d.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	sections := d.Sections()
	if len(iface) > 0 {
		sections = append(sections, Section{Name: "interface", Lines: iface})
	}
	for _, s := range sections {
		fmt.Fprintln(bw, s.Name)
		for _, line := range s.Lines {
			fmt.Fprintln(bw, "    "+line)
		}
	}
	return bw.Flush()
}

// WriteFile writes the deck to path through a temp file and rename.
func (d *Deck) WriteFile(path string, iface []string) error {
	var buf bytes.Buffer
	if err := d.Encode(&buf, iface); err != nil {
		return err
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write deck: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename deck: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func joinQuoted(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "'" + n + "'"
	}
	return strings.Join(parts, " ")
}

func containsToken(fields []string, token string) bool {
	for _, f := range fields {
		if f == token {
			return true
		}
	}
	return false
}

func removeToken(fields []string, token string) []string {
	var out []string
	for _, f := range fields {
		if f != token {
			out = append(out, f)
		}
	}
	return out
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
