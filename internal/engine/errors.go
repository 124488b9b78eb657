package engine

import "fmt"

// ErrExternalEngine matches any *ExternalEngineError.
var ErrExternalEngine = &ExternalEngineError{}

// ExternalEngineError reports that the engine itself failed: it could not
// be started or it exited unsuccessfully.
type ExternalEngineError struct {
	Engine   string
	ExitCode int // -1 when the engine never ran to completion
	Err      error
}

func (e *ExternalEngineError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s exited with code %d: %v", e.Engine, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Engine, e.Err)
}

func (e *ExternalEngineError) Unwrap() error {
	return e.Err
}

func (e *ExternalEngineError) Is(target error) bool {
	_, ok := target.(*ExternalEngineError)
	return ok
}
