package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/dakotadriver/internal/bridge"
	"github.com/cwbudde/dakotadriver/internal/deck"
)

// Mayfly minimizes the first objective in-process with the Mayfly
// algorithm. Only unconstrained optimizer decks are accepted.
type Mayfly struct {
	popSize int
	seed    int64
	logger  *slog.Logger
}

// NewMayfly creates a Mayfly engine. popSize must be at least 20.
func NewMayfly(popSize int, seed int64, logger *slog.Logger) *Mayfly {
	if popSize < 20 {
		popSize = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mayfly{popSize: popSize, seed: seed, logger: logger}
}

// Run optimizes over the deck's parameter bounds. The library takes one
// scalar bound for all dimensions, so it searches the unit cube and each
// coordinate is scaled to its own parameter's bounds.
//
// The search also stops evaluating once the best objective has not improved
// by convergence_tolerance over several windows of one population's worth of
// evaluations. The first evaluation error stops further host evaluations and
// is returned unmodified.
func (m *Mayfly) Run(ctx context.Context, job Job, eval bridge.Evaluator) error {
	opt, ok := job.Deck.MethodSpec.(*deck.Optimizer)
	if !ok {
		return fmt.Errorf("mayfly engine cannot run %s", job.Deck.MethodSpec.Kind())
	}
	if len(job.Deck.Spec.Constraints) > 0 {
		return fmt.Errorf("mayfly engine does not support constraints")
	}

	lower := job.Deck.Params.LowerBounds()
	upper := job.Deck.Params.UpperBounds()
	dim := len(lower)

	asv := make([]int, job.Deck.Spec.Count())
	for i := range asv {
		asv[i] = bridge.ValueRequested
	}

	var (
		evals     int
		firstErr  error
		converged bool
		best      = math.Inf(1)
		bestPoint []float64
	)
	tracker := NewConvergenceTracker(DefaultConvergenceConfig(opt.ConvergenceTolerance), m.logger)
	objective := func(u []float64) float64 {
		if firstErr != nil || converged || evals >= opt.MaxFunctionEvaluations {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			firstErr = err
			return math.Inf(1)
		}
		evals++
		req := bridge.Request{CV: scale(u, lower, upper), ASV: asv, EvalID: evals}
		result, err := eval.Evaluate(ctx, req)
		if err != nil {
			firstErr = err
			return math.Inf(1)
		}
		f := result.Fns[0]
		if f < best {
			best = f
			bestPoint = req.CV
		}
		if evals%m.popSize == 0 {
			converged = tracker.Update(best)
		}
		return f
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = objective
	config.ProblemSize = dim
	config.MaxIterations = opt.MaxIterations
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	m.logger.Info("starting engine", "engine", "mayfly",
		"dimensions", dim, "population", m.popSize, "max_iterations", opt.MaxIterations)

	_, err := mayfly.Optimize(config)
	if firstErr != nil {
		return firstErr
	}
	if err != nil {
		return &ExternalEngineError{Engine: "mayfly", ExitCode: -1, Err: err}
	}

	m.logger.Info("engine finished", "evaluations", evals, "converged", converged,
		"best_cost", best, "best_point", bestPoint)
	return nil
}

// scale maps u from the unit cube onto [lower, upper] per dimension.
func scale(u, lower, upper []float64) []float64 {
	x := make([]float64, len(u))
	for i, v := range u {
		v = math.Max(0, math.Min(1, v))
		x[i] = lower[i] + v*(upper[i]-lower[i])
	}
	return x
}
