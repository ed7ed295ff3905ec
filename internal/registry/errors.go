package registry

import (
	"errors"
	"fmt"
)

// NotFoundError reports an operation on a run id the registry does not know.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("run %s not found in registry", e.RunID)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AlreadyRegisteredError reports a Register call for an id that already has a
// live handle. The registry holds at most one handle per run id.
type AlreadyRegisteredError struct {
	RunID string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("run %s is already registered", e.RunID)
}
