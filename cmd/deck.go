package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dakotadriver/internal/engine"
	"github.com/cwbudde/dakotadriver/internal/study"
)

var (
	deckInterface bool
	deckRunID     string
)

var deckCmd = &cobra.Command{
	Use:   "deck <study.yaml>",
	Short: "Print the assembled input deck",
	Long: `Prints the deck the study assembles to. With --interface a fork
interface section is appended whose analysis driver evaluates the study
offline, so the output can be handed to dakota directly.`,
	Args: cobra.ExactArgs(1),
	RunE: printDeck,
}

func init() {
	deckCmd.Flags().BoolVar(&deckInterface, "interface", false, "Append a fork interface section running this binary")
	deckCmd.Flags().StringVar(&deckRunID, "run-id", "", "Run whose trace the driver appends to (with --interface)")
	rootCmd.AddCommand(deckCmd)
}

func printDeck(cmd *cobra.Command, args []string) error {
	s, err := study.Load(args[0])
	if err != nil {
		return err
	}

	d, err := s.Deck()
	if err != nil {
		return err
	}

	var iface []string
	if deckInterface {
		driver, err := offlineDriver(args[0], deckRunID)
		if err != nil {
			return err
		}
		iface, err = engine.InterfaceLines(driver)
		if err != nil {
			return err
		}
	}

	return d.Encode(cmd.OutOrStdout(), iface)
}

// offlineDriver is the analysis driver command evaluating studyPath in
// each forked process.
func offlineDriver(studyPath, runID string) ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	abs, err := filepath.Abs(studyPath)
	if err != nil {
		return nil, err
	}
	driver := []string{exe, "evaluate", "--study", abs}
	if runID != "" {
		dir, err := filepath.Abs(dataDir())
		if err != nil {
			return nil, err
		}
		driver = append(driver, "--run-id", runID, "--data-dir", dir)
	}
	return driver, nil
}
