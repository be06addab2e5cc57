package versioning

import (
	"errors"
	"fmt"
)

// ErrStrictBulk is returned before any persistence work when a bulk operation
// is attempted in strict mode. The combination is a configuration error, not
// a runtime condition, so it fails fast and deterministically.
var ErrStrictBulk = errors.New("strict mode is not implemented for bulk operations")

// StepError reports a failed step of a versioned mutation: which named step
// failed, the original error it produced, and the results of the steps that
// had already succeeded before the transaction rolled back.
type StepError struct {
	Step      string
	Err       error
	Completed map[string]any
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep extracts the failing step's name from an error produced by the
// engine, or "" when the error is not step-scoped.
func FailedStep(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
