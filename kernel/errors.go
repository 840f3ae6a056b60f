package kernel

import "fmt"

// Phases in which a run can fail with a ClientError.
const (
	PhaseFormat    = "format"
	PhaseModelCall = "model_call"
)

// ClientError is the only error a run surfaces to its caller. It wraps a
// transport or formatting failure together with the turn it happened on.
// Everything else (parse failures, tool failures, constraint build failures)
// is recovered inside the loop.
type ClientError struct {
	Turn  int
	Phase string
	Err   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return fmt.Sprintf("turn %d: %s: %v", e.Turn, e.Phase, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	return e.Err
}
