package bridge

import "fmt"

// ErrUnsupported matches any *UnsupportedRequestError.
var ErrUnsupported = &UnsupportedRequestError{}

// UnsupportedRequestError is returned when the engine asks for derivatives.
// It aborts the run in progress.
type UnsupportedRequestError struct {
	What string // "Gradients" or "Hessians"
}

func (e *UnsupportedRequestError) Error() string {
	if e.What == "" {
		return "not supported yet"
	}
	return e.What + " not supported yet"
}

func (e *UnsupportedRequestError) Is(target error) bool {
	_, ok := target.(*UnsupportedRequestError)
	return ok
}

// RequestError is returned when a request does not match the declared
// parameters or responses.
type RequestError struct {
	Field    string
	Expected int
	Actual   int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("malformed request: %s has %d entries, expected %d", e.Field, e.Actual, e.Expected)
}
