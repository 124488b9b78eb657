package store

// Store defines the interface for run record persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun atomically saves the record, overwriting any previous one.
	SaveRun(rec *RunRecord) error

	// LoadRun retrieves the record for runID.
	LoadRun(runID string) (*RunRecord, error)

	// ListRuns returns summaries of every stored run, oldest first.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the record and every artifact of the run:
	// the study, the deck, engine output and trace.jsonl.
	DeleteRun(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
