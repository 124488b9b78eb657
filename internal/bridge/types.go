package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Active set vector bits, one bitmask per response.
const (
	ValueRequested    = 1
	GradientRequested = 2
	HessianRequested  = 4
)

// Request is one evaluation asked for by the engine.
// Only CV and ASV are consumed; the rest is carried for logging and history.
type Request struct {
	CV     []float64 `json:"cv"`  // continuous variable values, in parameter order
	ASV    []int     `json:"asv"` // one bitmask per response, objectives first
	EvalID int       `json:"eval_id,omitempty"`
	Labels []string  `json:"labels,omitempty"`
}

// Result holds one value per response whose value bit was set.
type Result struct {
	Fns Values `json:"fns"`
}

// Values is a list of response values whose JSON form also carries
// non-finite numbers, written as the strings "inf", "-inf" and "nan".
type Values []float64

func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	out := make([]interface{}, len(v))
	for i, f := range v {
		switch {
		case math.IsNaN(f):
			out[i] = "nan"
		case math.IsInf(f, 1):
			out[i] = "inf"
		case math.IsInf(f, -1):
			out[i] = "-inf"
		default:
			out[i] = f
		}
	}
	return json.Marshal(out)
}

func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*v = nil
		return nil
	}
	vals := make(Values, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &vals[i]); err == nil {
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return fmt.Errorf("value %d: %s is not a number", i, r)
		}
		switch s {
		case "nan":
			vals[i] = math.NaN()
		case "inf":
			vals[i] = math.Inf(1)
		case "-inf":
			vals[i] = math.Inf(-1)
		default:
			return fmt.Errorf("value %d: unknown value %q", i, s)
		}
	}
	*v = vals
	return nil
}

// Host is the model the engine is driving.
type Host interface {
	SetParameter(name string, value float64) error
	Evaluate(ctx context.Context) error
}

// Response reads one objective or constraint after the host was evaluated.
type Response interface {
	Name() string
	Evaluate(ctx context.Context) (Outcome, error)
}

// Evaluator is what an engine calls back into once per evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// Evaluation is a completed request/result pair handed to a Recorder.
type Evaluation struct {
	EvalID    int
	CV        []float64
	ASV       []int
	Fns       []float64
	Timestamp time.Time
}

// Recorder keeps evaluation history.
type Recorder interface {
	Record(ctx context.Context, ev Evaluation) error
}

// Recorders fans an evaluation out to every recorder in order and stops at
// the first failure.
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, ev Evaluation) error {
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
