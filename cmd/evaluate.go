package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dakotadriver/internal/bridge"
	"github.com/cwbudde/dakotadriver/internal/fork"
	"github.com/cwbudde/dakotadriver/internal/store"
	"github.com/cwbudde/dakotadriver/internal/study"
)

var (
	evalCallback string
	evalStudy    string
	evalRunID    string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <params-file> <results-file>",
	Short: "Answer one engine evaluation (fork analysis driver)",
	Long: `Reads a DAKOTA parameters file, evaluates it and writes the results
file. With --callback the request is forwarded to the run that started the
engine; with --study the study's model is evaluated in this process.`,
	Args:   cobra.ExactArgs(2),
	Hidden: true,
	RunE:   runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalCallback, "callback", "", "Evaluation callback URL of the running study")
	evaluateCmd.Flags().StringVar(&evalStudy, "study", "", "Study file to evaluate offline")
	evaluateCmd.Flags().StringVar(&evalRunID, "run-id", "", "Run whose trace to append to (with --study)")
	evaluateCmd.MarkFlagsMutuallyExclusive("callback", "study")
	evaluateCmd.MarkFlagsOneRequired("callback", "study")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	params, err := fork.ReadParamsFile(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		eval   bridge.Evaluator
		labels = params.Functions
	)
	if evalCallback != "" {
		eval = fork.NewClient(evalCallback)
	} else {
		b, names, closeFn, err := offlineBridge(evalStudy, evalRunID)
		if err != nil {
			return err
		}
		defer closeFn()
		eval = b
		if len(labels) != len(names) {
			labels = names
		}
	}

	res, err := eval.Evaluate(ctx, params.Request())
	if err != nil {
		return err
	}
	if len(labels) != len(res.Fns) {
		labels = nil
	}
	return fork.WriteResultsFile(args[1], res.Fns, labels)
}

// offlineBridge builds the study's bridge in this process. With a run id
// the evaluation is appended to that run's trace.
func offlineBridge(path, runID string) (*bridge.Bridge, []string, func(), error) {
	s, err := study.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	component, err := s.NewModel()
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := s.Bridge(component)
	if err != nil {
		return nil, nil, nil, err
	}
	b.WithLogger(logger)

	names := append([]string(nil), s.Objectives...)
	for _, c := range s.Constraints {
		names = append(names, c.Name)
	}

	closeFn := func() {}
	if runID != "" {
		trace, err := store.NewTraceWriter(dataDir(), runID, true)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open trace: %w", err)
		}
		b.WithRecorder(trace)
		closeFn = func() { trace.Close() }
	}
	return b, names, closeFn, nil
}
