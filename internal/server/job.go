package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/dakotadriver/internal/store"
	"github.com/cwbudde/dakotadriver/internal/study"
)

// JobState is the lifecycle state of a job; jobs and runs share states.
type JobState = store.RunState

const (
	StatePending   = store.StatePending
	StateRunning   = store.StateRunning
	StateCompleted = store.StateCompleted
	StateFailed    = store.StateFailed
	StateCancelled = store.StateCancelled
)

// Job is one study submitted to the server. Its ID is also the run ID.
type Job struct {
	ID            string     `json:"id"`
	State         JobState   `json:"state"`
	Study         string     `json:"study"`
	Model         string     `json:"model"`
	Method        string     `json:"method"`
	Engine        string     `json:"engine"`
	Evaluations   int        `json:"evaluations"`
	BestObjective *float64   `json:"bestObjective,omitempty"`
	BestPoint     []float64  `json:"bestPoint,omitempty"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	Error         string     `json:"error,omitempty"`

	spec   *study.Study
	cancel context.CancelFunc
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job for s.
func (jm *JobManager) CreateJob(s *study.Study) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Study:     s.Name,
		Model:     s.Model,
		Method:    s.Method.Kind,
		Engine:    s.Engine.Kind,
		StartTime: time.Now(),
		spec:      s,
	}

	jm.jobs[job.ID] = job
	return *job
}

// GetJob returns a snapshot of the job.
func (jm *JobManager) GetJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, *job)
		}
	}
	return runningJobs
}

// CancelJob stops a pending or running job. A pending job is marked
// cancelled right away and never starts. Finished jobs are left alone.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.Lock()
	job, exists := jm.jobs[id]
	if !exists {
		jm.mu.Unlock()
		return fmt.Errorf("job not found: %s", id)
	}
	if job.State.Terminal() {
		jm.mu.Unlock()
		return fmt.Errorf("job %s already %s", id, job.State)
	}
	pending := jm.cancelLocked(job)
	jm.mu.Unlock()

	if pending {
		broadcastState(jm, id)
	}
	return nil
}

// CancelAll stops every job that has not finished.
func (jm *JobManager) CancelAll() {
	jm.mu.Lock()
	var pending []string
	for _, job := range jm.jobs {
		if !job.State.Terminal() && jm.cancelLocked(job) {
			pending = append(pending, job.ID)
		}
	}
	jm.mu.Unlock()

	for _, id := range pending {
		broadcastState(jm, id)
	}
}

// cancelLocked cancels a running job's context or marks a pending job
// cancelled, reporting the latter. jm.mu must be held.
func (jm *JobManager) cancelLocked(job *Job) bool {
	if job.cancel != nil {
		job.cancel()
		return false
	}
	if job.State != StatePending {
		return false
	}
	endTime := time.Now()
	job.State = StateCancelled
	job.EndTime = &endTime
	return true
}
