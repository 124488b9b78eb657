package store

import (
	"time"
)

// RunState is the lifecycle state of a run.
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
)

// Terminal reports whether no further transitions happen from s.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// RunRecord is the persisted outcome of one study run, stored as
// <baseDir>/runs/<id>/run.json.
type RunRecord struct {
	ID     string   `json:"id"`
	Study  string   `json:"study"`
	Model  string   `json:"model"`
	Method string   `json:"method"`
	Engine string   `json:"engine"`
	State  RunState `json:"state"`
	Error  string   `json:"error,omitempty"`

	// Evaluations is the number of answered evaluation requests.
	Evaluations int `json:"evaluations"`

	// BestObjective is the lowest first-objective value seen, with the
	// point that produced it. Nil until an evaluation returned it.
	BestObjective *float64  `json:"bestObjective,omitempty"`
	BestPoint     []float64 `json:"bestPoint,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// RunInfo is the listing view of a run.
type RunInfo struct {
	ID            string    `json:"id"`
	Study         string    `json:"study"`
	Method        string    `json:"method"`
	State         RunState  `json:"state"`
	Evaluations   int       `json:"evaluations"`
	BestObjective *float64  `json:"bestObjective,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewRunRecord creates a pending record.
func NewRunRecord(id, study, model, method, engine string) *RunRecord {
	return &RunRecord{
		ID:        id,
		Study:     study,
		Model:     model,
		Method:    method,
		Engine:    engine,
		State:     StatePending,
		CreatedAt: time.Now(),
	}
}

// ToInfo converts a full record to its listing view.
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		ID:            r.ID,
		Study:         r.Study,
		Method:        r.Method,
		State:         r.State,
		Evaluations:   r.Evaluations,
		BestObjective: r.BestObjective,
		CreatedAt:     r.CreatedAt,
	}
}

// Validate checks if the record has valid data.
func (r *RunRecord) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	switch r.State {
	case StatePending, StateRunning, StateCompleted, StateFailed, StateCancelled:
	default:
		return &ValidationError{Field: "State", Reason: "unknown state " + string(r.State)}
	}
	if r.Evaluations < 0 {
		return &ValidationError{Field: "Evaluations", Reason: "cannot be negative"}
	}
	if r.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	if r.State == StateFailed && r.Error == "" {
		return &ValidationError{Field: "Error", Reason: "required for failed runs"}
	}
	return nil
}

// ValidationError represents a run record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
