package engine

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines when an in-process search counts as converged.
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool

	// Patience is the number of consecutive windows without a significant
	// improvement of the best objective before stopping.
	Patience int

	// Threshold is the minimum relative improvement that counts as progress.
	// Relative improvement = (last - best) / |last|
	Threshold float64
}

// DefaultConvergenceConfig returns the defaults for tolerance.
func DefaultConvergenceConfig(tolerance float64) ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  5,
		Threshold: tolerance,
	}
}

// ConvergenceTracker tracks the best objective per window and detects when
// it stops improving.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	bestCost        float64
	lastSignificant float64
	staleCount      int
	logger          *slog.Logger
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig, logger *slog.Logger) *ConvergenceTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConvergenceTracker{
		config:          config,
		bestCost:        math.Inf(1),
		lastSignificant: math.Inf(1),
		logger:          logger,
	}
}

// Update records the best cost of the latest window and reports whether
// convergence was detected.
func (c *ConvergenceTracker) Update(cost float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.history = append(c.history, cost)
	if cost < c.bestCost {
		c.bestCost = cost
	}

	if len(c.history) == 1 {
		c.lastSignificant = cost
		return false
	}

	if c.improved(cost) {
		c.lastSignificant = cost
		c.staleCount = 0
		return false
	}

	c.staleCount++
	c.logger.Debug("no significant improvement",
		"cost", cost,
		"last_significant", c.lastSignificant,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	if c.staleCount >= c.config.Patience {
		c.logger.Info("convergence detected",
			"stale_count", c.staleCount,
			"best_cost", c.bestCost,
		)
		return true
	}
	return false
}

func (c *ConvergenceTracker) improved(cost float64) bool {
	if math.IsInf(c.lastSignificant, 1) {
		return !math.IsInf(cost, 1)
	}
	if c.lastSignificant == 0 {
		return cost < 0
	}
	return (c.lastSignificant-cost)/math.Abs(c.lastSignificant) >= c.config.Threshold
}

// BestCost returns the best cost seen so far
func (c *ConvergenceTracker) BestCost() float64 {
	return c.bestCost
}

// History returns the best cost of every window
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the current number of windows without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}
