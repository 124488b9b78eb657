package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dakotadriver/internal/runner"
	"github.com/cwbudde/dakotadriver/internal/store"
	"github.com/cwbudde/dakotadriver/internal/study"
)

var (
	runHistory bool
	runQuiet   bool
)

var runCmd = &cobra.Command{
	Use:   "run <study.yaml>",
	Short: "Run a study to completion",
	Long: `Assembles the study's deck, runs the configured engine and answers
every evaluation from the study's model. The run record, trace and engine
files are kept under <data-dir>/runs/<run-id>/.`,
	Args: cobra.ExactArgs(1),
	RunE: runStudy,
}

func init() {
	runCmd.Flags().BoolVar(&runHistory, "history", false, "Also record evaluations in <data-dir>/history.db")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Do not echo engine console output")
	rootCmd.AddCommand(runCmd)
}

func runStudy(cmd *cobra.Command, args []string) error {
	s, err := study.Load(args[0])
	if err != nil {
		return err
	}

	opts, cleanup, err := runnerOptions(runHistory)
	if err != nil {
		return err
	}
	defer cleanup()
	if !runQuiet {
		opts.Console = cmd.OutOrStdout()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := runner.New(opts).Run(ctx, s)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s %s (%d evaluations)\n", rec.ID, rec.State, rec.Evaluations)
	if rec.BestObjective != nil {
		fmt.Fprintf(out, "Best %s = %g at %v\n", s.Objectives[0], *rec.BestObjective, rec.BestPoint)
	}
	return nil
}

// runnerOptions opens the run store, and the history database when asked
// for, under the configured data directory. The analysis driver is this
// binary's evaluate subcommand.
func runnerOptions(history bool) (runner.Options, func(), error) {
	fs, err := store.NewFSStore(dataDir())
	if err != nil {
		return runner.Options{}, nil, fmt.Errorf("failed to create run store: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return runner.Options{}, nil, fmt.Errorf("failed to locate executable: %w", err)
	}

	opts := runner.Options{
		Store:  fs,
		Driver: []string{exe, "evaluate"},
		Logger: logger,
	}
	cleanup := func() {}

	if history {
		db, err := store.OpenHistory(filepath.Join(fs.BaseDir(), "history.db"))
		if err != nil {
			return runner.Options{}, nil, err
		}
		opts.History = db
		cleanup = func() { db.Close() }
	}
	return opts, cleanup, nil
}
