package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

type jobSummary struct {
	ID            string   `json:"id"`
	State         string   `json:"state"`
	Study         string   `json:"study"`
	Method        string   `json:"method"`
	Engine        string   `json:"engine"`
	Evaluations   int      `json:"evaluations"`
	BestObjective *float64 `json:"bestObjective"`
	Error         string   `json:"error"`
}

type jobStatus struct {
	jobSummary
	Model       string    `json:"model"`
	BestPoint   []float64 `json:"bestPoint"`
	Elapsed     float64   `json:"elapsed"`
	EvalsPerSec float64   `json:"evalsPerSec"`
}

func listJobs(w io.Writer, url string) error {
	var jobs []jobSummary
	if err := getJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	fmt.Fprintf(w, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(w, "Job ID: %s\n", job.ID)
		fmt.Fprintf(w, "  State: %s\n", job.State)
		fmt.Fprintf(w, "  Study: %s (%s on %s)\n", job.Study, job.Method, job.Engine)
		fmt.Fprintf(w, "  Evaluations: %d\n", job.Evaluations)
		if job.BestObjective != nil {
			fmt.Fprintf(w, "  Best: %g\n", *job.BestObjective)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func getJobStatus(w io.Writer, url, jobID string) error {
	var status jobStatus
	if err := getJSON(url, &status); err != nil {
		var se *httpStatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return err
	}

	fmt.Fprintf(w, "Job: %s\n", status.ID)
	fmt.Fprintf(w, "State: %s\n", status.State)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Study:")
	fmt.Fprintf(w, "  Name: %s\n", status.Study)
	fmt.Fprintf(w, "  Model: %s\n", status.Model)
	fmt.Fprintf(w, "  Method: %s\n", status.Method)
	fmt.Fprintf(w, "  Engine: %s\n", status.Engine)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Progress:")
	fmt.Fprintf(w, "  Evaluations: %d\n", status.Evaluations)
	if status.BestObjective != nil {
		fmt.Fprintf(w, "  Best Objective: %g\n", *status.BestObjective)
		fmt.Fprintf(w, "  Best Point: %v\n", status.BestPoint)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(w, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.EvalsPerSec > 0 {
		fmt.Fprintf(w, "  Throughput: %.1f evals/sec\n", status.EvalsPerSec)
	}

	if status.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", status.Error)
	}

	return nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("server returned error (%d): %s", e.Code, e.Body)
}

func getJSON(url string, v interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &httpStatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
