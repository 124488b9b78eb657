package fork

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteResults writes one "value label" line per entry of fns. Labels may be
// shorter than fns; missing labels are left off.
func WriteResults(w io.Writer, fns []float64, labels []string) error {
	bw := bufio.NewWriter(w)
	for i, v := range fns {
		line := strconv.FormatFloat(v, 'e', 15, 64)
		if i < len(labels) && labels[i] != "" {
			line += " " + labels[i]
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteResultsFile writes the results to path. The engine polls for the
// file, so it only appears once complete.
func WriteResultsFile(path string, fns []float64, labels []string) error {
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	if err := WriteResults(f, fns, labels); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close results file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename results file: %w", err)
	}
	return nil
}
