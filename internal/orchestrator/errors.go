package orchestrator

import (
	"errors"
	"fmt"
)

// InvalidRequestError reports a run request that failed precondition checks
// before any submission was attempted.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid run request: %s", e.Reason)
}

func IsInvalidRequest(err error) bool {
	var ire *InvalidRequestError
	return errors.As(err, &ire)
}

// RunInProgressError reports a startRun attempt while another run is still
// being tracked. The orchestrator allows at most one tracking run per
// session.
type RunInProgressError struct {
	ActiveRunID string
}

func (e *RunInProgressError) Error() string {
	return fmt.Sprintf("a test run is already in progress: %s", e.ActiveRunID)
}

func IsRunInProgress(err error) bool {
	var rip *RunInProgressError
	return errors.As(err, &rip)
}
