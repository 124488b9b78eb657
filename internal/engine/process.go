package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cwbudde/dakotadriver/internal/bridge"
	"github.com/cwbudde/dakotadriver/internal/fork"
)

// Fork interface file names. The engine tags them with the evaluation
// number before handing them to the driver.
const (
	ParamsFile  = "params.in"
	ResultsFile = "results.out"
)

// Process runs the DAKOTA executable. Each evaluation forks the analysis
// driver, which posts its parameters back to a loopback callback served by
// Run and writes the returned values as the results file.
type Process struct {
	executable string
	driver     []string
	logger     *slog.Logger
}

// NewProcess creates a process engine. driver is the analysis driver
// command; the callback flag is appended to it.
func NewProcess(executable string, driver []string, logger *slog.Logger) *Process {
	if executable == "" {
		executable = "dakota"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{executable: executable, driver: driver, logger: logger}
}

// Interface returns the interface section lines for a driver reachable at
// callbackURL.
func (p *Process) Interface(callbackURL string) ([]string, error) {
	cmd := append(append([]string(nil), p.driver...), "--callback", callbackURL)
	return InterfaceLines(cmd)
}

// InterfaceLines renders a fork interface section that runs cmd. DAKOTA
// splits the driver string on whitespace, so no argument may contain
// whitespace or quotes.
func InterfaceLines(cmd []string) ([]string, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("empty analysis driver")
	}
	for _, arg := range cmd {
		if arg == "" || strings.ContainsAny(arg, " \t\n\r'\"") {
			return nil, fmt.Errorf("analysis driver argument %q cannot contain whitespace or quotes", arg)
		}
	}
	return []string{
		"fork",
		"    analysis_drivers = '" + strings.Join(cmd, " ") + "'",
		"    parameters_file = '" + ParamsFile + "'",
		"    results_file = '" + ResultsFile + "'",
		"    file_tag",
	}, nil
}

// Run serves eval on a loopback listener, writes the deck and runs the
// engine in job.Dir. If an evaluation failed, that error is returned as-is
// in place of the engine's exit status.
func (p *Process) Run(ctx context.Context, job Job, eval bridge.Evaluator) error {
	if len(p.driver) == 0 {
		return fmt.Errorf("no analysis driver configured")
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	guarded := evaluatorFunc(func(ctx context.Context, req bridge.Request) (bridge.Result, error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr != nil {
			return bridge.Result{}, firstErr
		}
		result, err := eval.Evaluate(ctx, req)
		if err != nil {
			firstErr = err
		}
		return result, err
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return &ExternalEngineError{Engine: p.executable, ExitCode: -1, Err: fmt.Errorf("failed to listen for callbacks: %w", err)}
	}

	mux := http.NewServeMux()
	mux.Handle(fork.CallbackPath, fork.Handler(guarded, p.logger))
	srv := &http.Server{
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go srv.Serve(ln)
	defer srv.Close()

	callbackURL := "http://" + ln.Addr().String() + fork.CallbackPath
	name := job.Name
	if name == "" {
		name = "dakota"
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid deck name %q", name)
	}
	iface, err := p.Interface(callbackURL)
	if err != nil {
		return err
	}
	deckPath := filepath.Join(job.Dir, name+".in")
	if err := job.Deck.WriteFile(deckPath, iface); err != nil {
		return err
	}

	args := []string{"-input", name + ".in"}
	if job.Stdout != "" {
		args = append(args, "-output", job.Stdout)
	}
	if job.Stderr != "" {
		args = append(args, "-error", job.Stderr)
	}

	console := job.Console
	if console == nil {
		console = io.Discard
	}

	cmd := exec.CommandContext(ctx, p.executable, args...)
	cmd.Dir = job.Dir
	cmd.Stdout = console
	cmd.Stderr = console
	cmd.Env = os.Environ()

	p.logger.Info("starting engine", "executable", p.executable, "deck", deckPath, "callback", callbackURL)
	runErr := cmd.Run()

	mu.Lock()
	evalErr := firstErr
	mu.Unlock()
	if evalErr != nil {
		return evalErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return &ExternalEngineError{Engine: p.executable, ExitCode: exitErr.ExitCode(), Err: runErr}
		}
		return &ExternalEngineError{Engine: p.executable, ExitCode: -1, Err: runErr}
	}

	p.logger.Info("engine finished")
	return nil
}
