package server

import (
	"context"
	"errors"
	"testing"

	"github.com/cwbudde/dakotadriver/internal/deck"
	"github.com/cwbudde/dakotadriver/internal/runner"
	"github.com/cwbudde/dakotadriver/internal/store"
	"github.com/cwbudde/dakotadriver/internal/study"
)

func testRunner(t *testing.T) (*runner.Runner, *store.FSStore) {
	t.Helper()
	fs, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	return runner.New(runner.Options{Store: fs}), fs
}

func TestRunJob_Success(t *testing.T) {
	r, fs := testRunner(t)
	jm := NewJobManager()
	job := jm.CreateJob(testStudy(t))

	events := jm.broadcaster.Subscribe(job.ID)
	defer jm.broadcaster.Unsubscribe(job.ID, events)

	if err := runJob(context.Background(), jm, r, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}
	if updated.Evaluations != 60 {
		t.Errorf("Expected 60 evaluations, got %d", updated.Evaluations)
	}
	if updated.BestObjective == nil || len(updated.BestPoint) != 2 {
		t.Errorf("Expected a best point, got %v / %v", updated.BestObjective, updated.BestPoint)
	}
	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}

	first := <-events
	if first.State != StateRunning {
		t.Errorf("First event should report running, got %s", first.State)
	}

	// The job ID doubles as the run ID
	rec, err := fs.LoadRun(job.ID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if rec.State != store.StateCompleted || rec.Evaluations != updated.Evaluations {
		t.Errorf("Run record disagrees with job: %+v", rec)
	}
}

func TestRunJob_ConfigurationError(t *testing.T) {
	r, _ := testRunner(t)
	jm := NewJobManager()

	s, err := study.Parse([]byte(`
model: rosenbrock
method: {kind: multidim_parameter_study, partitions: [4]}
parameters: [{name: x1, low: 0, high: 1}, {name: x2, low: 0, high: 1}]
objectives: [f]
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	job := jm.CreateJob(s)

	err = runJob(context.Background(), jm, r, job.ID)
	if !errors.Is(err, deck.ErrConfiguration) {
		t.Fatalf("Expected configuration error, got %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}
	if updated.Error != "#partitions (1) != #parameters (2)" {
		t.Errorf("Unexpected error message: %q", updated.Error)
	}
}

func TestRunJob_Cancelled(t *testing.T) {
	r, _ := testRunner(t)
	jm := NewJobManager()
	job := jm.CreateJob(testStudy(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runJob(ctx, jm, r, job.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}
}

func TestRunJob_CancelledWhilePending(t *testing.T) {
	r, fs := testRunner(t)
	jm := NewJobManager()
	job := jm.CreateJob(testStudy(t))

	if err := jm.CancelJob(job.ID); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}

	err := runJob(context.Background(), jm, r, job.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should stay cancelled, got %s", updated.State)
	}
	if updated.Evaluations != 0 {
		t.Errorf("Expected no evaluations, got %d", updated.Evaluations)
	}
	if _, err := fs.LoadRun(job.ID); err == nil {
		t.Error("A job cancelled while pending should never create a run")
	}
}

func TestRunJob_NotFound(t *testing.T) {
	r, _ := testRunner(t)
	jm := NewJobManager()

	if err := runJob(context.Background(), jm, r, "nonexistent"); err == nil {
		t.Error("Should fail for nonexistent job")
	}
}
