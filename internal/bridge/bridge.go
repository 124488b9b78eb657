package bridge

import (
	"context"
	"log/slog"
	"time"
)

// Bridge answers engine evaluation requests against a host model.
//
// A Bridge mutates its host on every call and is not safe for concurrent
// use. Engines call it strictly sequentially.
type Bridge struct {
	host      Host
	params    []string
	responses []Response
	recorder  Recorder
	logger    *slog.Logger
}

// New creates a bridge. params gives the positional order of request CV
// values; objectives and constraints give the order of ASV entries and
// result values.
func New(host Host, params []string, objectives, constraints []Response) *Bridge {
	responses := make([]Response, 0, len(objectives)+len(constraints))
	responses = append(responses, objectives...)
	responses = append(responses, constraints...)
	return &Bridge{
		host:      host,
		params:    append([]string(nil), params...),
		responses: responses,
		logger:    slog.Default(),
	}
}

// WithRecorder sets the history recorder.
func (b *Bridge) WithRecorder(r Recorder) *Bridge {
	b.recorder = r
	return b
}

// WithLogger sets the logger used for per-evaluation debug output.
func (b *Bridge) WithLogger(l *slog.Logger) *Bridge {
	if l != nil {
		b.logger = l
	}
	return b
}

// Responses returns the response count the engine must send ASV entries for.
func (b *Bridge) Responses() int {
	return len(b.responses)
}

// Evaluate pushes req.CV into the host, evaluates it once and reads back
// every response whose value bit is set. Host failures are returned as-is.
func (b *Bridge) Evaluate(ctx context.Context, req Request) (Result, error) {
	b.logger.Debug("evaluation request", "eval_id", req.EvalID, "cv", req.CV, "asv", req.ASV)

	if len(req.CV) != len(b.params) {
		return Result{}, &RequestError{Field: "cv", Expected: len(b.params), Actual: len(req.CV)}
	}
	if len(req.ASV) != len(b.responses) {
		return Result{}, &RequestError{Field: "asv", Expected: len(b.responses), Actual: len(req.ASV)}
	}

	for i, name := range b.params {
		if err := b.host.SetParameter(name, req.CV[i]); err != nil {
			return Result{}, err
		}
	}
	if err := b.host.Evaluate(ctx); err != nil {
		return Result{}, err
	}

	fns := make([]float64, 0, len(b.responses))
	for i, resp := range b.responses {
		asv := req.ASV[i]
		if asv&GradientRequested != 0 {
			return Result{}, &UnsupportedRequestError{What: "Gradients"}
		}
		if asv&HessianRequested != 0 {
			return Result{}, &UnsupportedRequestError{What: "Hessians"}
		}
		if asv&ValueRequested == 0 {
			continue
		}
		out, err := resp.Evaluate(ctx)
		if err != nil {
			return Result{}, err
		}
		fns = append(fns, out.Residual())
	}

	if b.recorder != nil {
		ev := Evaluation{
			EvalID:    req.EvalID,
			CV:        append([]float64(nil), req.CV...),
			ASV:       append([]int(nil), req.ASV...),
			Fns:       append([]float64(nil), fns...),
			Timestamp: time.Now(),
		}
		if err := b.recorder.Record(ctx, ev); err != nil {
			return Result{}, err
		}
	}

	result := Result{Fns: fns}
	b.logger.Debug("evaluation result", "eval_id", req.EvalID, "fns", result.Fns)
	return result, nil
}
