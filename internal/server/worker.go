package server

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/dakotadriver/internal/bridge"
	"github.com/cwbudde/dakotadriver/internal/runner"
	"github.com/cwbudde/dakotadriver/internal/store"
)

// progressRecorder updates the job and broadcasts an event for every
// answered evaluation.
type progressRecorder struct {
	jm    *JobManager
	jobID string
}

func (p *progressRecorder) Record(_ context.Context, ev bridge.Evaluation) error {
	var event ProgressEvent
	err := p.jm.UpdateJob(p.jobID, func(j *Job) {
		j.Evaluations++
		if len(ev.Fns) > 0 && len(ev.ASV) > 0 && ev.ASV[0]&bridge.ValueRequested != 0 &&
			!math.IsNaN(ev.Fns[0]) && !math.IsInf(ev.Fns[0], 0) {
			if j.BestObjective == nil || ev.Fns[0] < *j.BestObjective {
				v := ev.Fns[0]
				j.BestObjective = &v
				j.BestPoint = ev.CV
			}
		}
		event = ProgressEvent{
			JobID:         j.ID,
			State:         j.State,
			Evaluations:   j.Evaluations,
			EvalID:        ev.EvalID,
			CV:            ev.CV,
			Fns:           ev.Fns,
			BestObjective: j.BestObjective,
			Timestamp:     time.Now(),
		}
	})
	if err != nil {
		return err
	}
	p.jm.broadcaster.Broadcast(event)
	return nil
}

// runJob executes a job in the background through r. The job's run
// record, trace and engine files live under the run directory of its ID.
func runJob(ctx context.Context, jm *JobManager, r *runner.Runner, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := false
	err := jm.UpdateJob(jobID, func(j *Job) {
		if j.State != StatePending {
			return
		}
		j.State = StateRunning
		j.cancel = cancel
		started = true
	})
	if err != nil {
		return err
	}
	if !started {
		slog.Info("Job cancelled before start", "job_id", jobID)
		return context.Canceled
	}
	broadcastState(jm, jobID)

	slog.Info("Starting job", "job_id", jobID, "study", job.Study, "method", job.Method, "engine", job.Engine)

	rec, err := r.Prepare(job.spec, jobID)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	runErr := r.Execute(ctx, job.spec, rec, &progressRecorder{jm: jm, jobID: jobID})

	jm.UpdateJob(jobID, func(j *Job) {
		j.State = rec.State
		j.Evaluations = rec.Evaluations
		j.BestObjective = rec.BestObjective
		j.BestPoint = rec.BestPoint
		j.Error = rec.Error
		j.EndTime = rec.EndedAt
		j.cancel = nil
	})
	broadcastState(jm, jobID)

	switch rec.State {
	case store.StateCompleted:
		slog.Info("Job completed", "job_id", jobID, "evaluations", rec.Evaluations)
	case store.StateCancelled:
		slog.Info("Job cancelled", "job_id", jobID)
	default:
		slog.Error("Job failed", "job_id", jobID, "error", runErr)
	}
	return runErr
}

// broadcastState sends the job's current state to stream subscribers.
func broadcastState(jm *JobManager, jobID string) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}
	jm.broadcaster.Broadcast(eventFor(job))
}

func eventFor(job Job) ProgressEvent {
	return ProgressEvent{
		JobID:         job.ID,
		State:         job.State,
		Evaluations:   job.Evaluations,
		BestObjective: job.BestObjective,
		Error:         job.Error,
		Timestamp:     time.Now(),
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
		j.cancel = nil
	})
	broadcastState(jm, jobID)
	slog.Error("Job failed", "job_id", jobID, "error", err)
}
