package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cwbudde/dakotadriver/internal/bridge"
	"github.com/cwbudde/dakotadriver/internal/deck"
)

// Engine runs one assembled deck, calling back into eval once per
// evaluation. It returns when the engine finishes.
type Engine interface {
	Run(ctx context.Context, job Job, eval bridge.Evaluator) error
}

// Job is one engine invocation.
type Job struct {
	RunID string
	Name  string // base name of the deck file
	Dir   string // working directory; engine files are written here
	Deck  *deck.Deck

	// Stdout and Stderr name files in Dir that receive the engine's own
	// output. Empty means Console.
	Stdout string
	Stderr string

	Console io.Writer // nil discards
}

// Config selects an engine implementation.
type Config struct {
	Kind       string // dakota or mayfly
	Executable string
	Driver     []string // analysis driver command for the dakota engine
	Population int
	Seed       int64
	Logger     *slog.Logger
}

// New creates the engine named by cfg.Kind.
func New(cfg Config) (Engine, error) {
	switch cfg.Kind {
	case "", "dakota":
		return NewProcess(cfg.Executable, cfg.Driver, cfg.Logger), nil
	case "mayfly":
		return NewMayfly(cfg.Population, cfg.Seed, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", cfg.Kind)
	}
}

// evaluatorFunc adapts a function to bridge.Evaluator.
type evaluatorFunc func(ctx context.Context, req bridge.Request) (bridge.Result, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, req bridge.Request) (bridge.Result, error) {
	return f(ctx, req)
}
