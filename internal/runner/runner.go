// Package runner executes one study end to end: it records the run,
// assembles the deck, wires the host model into a bridge and hands both to
// the configured engine.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/dakotadriver/internal/bridge"
	"github.com/cwbudde/dakotadriver/internal/engine"
	"github.com/cwbudde/dakotadriver/internal/store"
	"github.com/cwbudde/dakotadriver/internal/study"
)

// StudyArtifact is the file name the study is saved under in the run
// directory. Analysis driver processes reload it from there.
const StudyArtifact = "study.yaml"

// Options configures a Runner.
type Options struct {
	Store   *store.FSStore
	History *store.HistoryDB // optional

	// Driver is the analysis driver command the dakota engine forks for
	// each evaluation, normally this binary's evaluate subcommand.
	Driver []string

	Console io.Writer // engine console output; nil discards
	Logger  *slog.Logger
}

// Runner runs studies.
type Runner struct {
	store   *store.FSStore
	history *store.HistoryDB
	driver  []string
	console io.Writer
	logger  *slog.Logger
}

// New creates a runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:   opts.Store,
		history: opts.History,
		driver:  opts.Driver,
		console: opts.Console,
		logger:  logger,
	}
}

// Run prepares and executes s under a new run id.
func (r *Runner) Run(ctx context.Context, s *study.Study) (*store.RunRecord, error) {
	rec, err := r.Prepare(s, "")
	if err != nil {
		return nil, err
	}
	return rec, r.Execute(ctx, s, rec, nil)
}

// Prepare creates a pending record for s and saves the study next to it.
// An empty runID gets a fresh one.
func (r *Runner) Prepare(s *study.Study, runID string) (*store.RunRecord, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	rec := store.NewRunRecord(runID, s.Name, s.Model, s.Method.Kind, s.Engine.Kind)

	data, err := s.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode study: %w", err)
	}
	if err := r.store.WriteArtifact(runID, StudyArtifact, data); err != nil {
		return nil, err
	}
	if err := r.store.SaveRun(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Execute runs a prepared record to completion and saves its final state.
// extra, if not nil, sees every evaluation after the trace does. The
// returned error is exactly what assembly or the engine reported.
func (r *Runner) Execute(ctx context.Context, s *study.Study, rec *store.RunRecord, extra bridge.Recorder) error {
	logger := r.logger.With("run_id", rec.ID)

	d, err := s.Deck()
	if err != nil {
		r.finish(rec, err, logger)
		return err
	}

	component, err := s.NewModel()
	if err != nil {
		r.finish(rec, err, logger)
		return err
	}
	b, err := s.Bridge(component)
	if err != nil {
		r.finish(rec, err, logger)
		return err
	}

	eng, err := engine.New(engine.Config{
		Kind:       s.Engine.Kind,
		Executable: s.Engine.Executable,
		Driver:     r.driver,
		Population: s.Engine.Population,
		Seed:       s.Engine.Seed,
		Logger:     logger,
	})
	if err != nil {
		r.finish(rec, err, logger)
		return err
	}

	dir, err := r.store.RunDir(rec.ID)
	if err != nil {
		r.finish(rec, err, logger)
		return err
	}

	trace, err := store.NewTraceWriter(r.store.BaseDir(), rec.ID, false)
	if err != nil {
		r.finish(rec, err, logger)
		return err
	}
	recorders := bridge.Recorders{trace}
	if r.history != nil {
		recorders = append(recorders, r.history.Recorder(rec.ID))
	}
	if extra != nil {
		recorders = append(recorders, extra)
	}
	b.WithRecorder(recorders).WithLogger(logger)

	started := time.Now()
	rec.State = store.StateRunning
	rec.StartedAt = &started
	if err := r.store.SaveRun(rec); err != nil {
		trace.Close()
		return err
	}

	logger.Info("Starting run", "study", s.Name, "method", s.Method.Kind, "engine", s.Engine.Kind,
		"parameters", d.Params.Len(), "responses", d.Spec.Count())

	runErr := eng.Run(ctx, engine.Job{
		RunID:   rec.ID,
		Name:    s.Name,
		Dir:     dir,
		Deck:    d,
		Stdout:  s.Stdout,
		Stderr:  s.Stderr,
		Console: r.console,
	}, b)

	if err := trace.Close(); err != nil {
		logger.Warn("Failed to close trace", "error", err)
	}
	r.summarize(rec, logger)

	if runErr != nil && ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
		r.cancel(rec, logger)
		return runErr
	}
	r.finish(rec, runErr, logger)
	return runErr
}

func (r *Runner) summarize(rec *store.RunRecord, logger *slog.Logger) {
	reader, err := store.NewTraceReader(r.store.BaseDir(), rec.ID)
	if err != nil {
		logger.Warn("Failed to open trace", "error", err)
		return
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		logger.Warn("Failed to read trace", "error", err)
		return
	}
	sum := store.Summarize(entries)
	rec.Evaluations = sum.Evaluations
	rec.BestObjective = sum.BestObjective
	rec.BestPoint = sum.BestPoint
}

// finish marks rec completed, or failed when err is set, and saves it.
func (r *Runner) finish(rec *store.RunRecord, err error, logger *slog.Logger) {
	ended := time.Now()
	rec.EndedAt = &ended
	if err != nil {
		rec.State = store.StateFailed
		rec.Error = err.Error()
		logger.Error("Run failed", "error", err)
	} else {
		rec.State = store.StateCompleted
		attrs := []any{"evaluations", rec.Evaluations}
		if rec.BestObjective != nil {
			attrs = append(attrs, "best_objective", *rec.BestObjective, "best_point", rec.BestPoint)
		}
		logger.Info("Run completed", attrs...)
	}
	if err := r.store.SaveRun(rec); err != nil {
		logger.Error("Failed to save run record", "error", err)
	}
}

func (r *Runner) cancel(rec *store.RunRecord, logger *slog.Logger) {
	ended := time.Now()
	rec.EndedAt = &ended
	rec.State = store.StateCancelled
	if err := r.store.SaveRun(rec); err != nil {
		logger.Error("Failed to save run record", "error", err)
	}
	logger.Info("Run cancelled", "evaluations", rec.Evaluations)
}
