package jobservice

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ServiceError for callers that branch on the failure
// mode rather than the HTTP details.
type ErrorKind int

const (
	// KindValidationRejected means the Job Service refused the request as
	// invalid (model not loaded, unknown test type, malformed body).
	KindValidationRejected ErrorKind = iota + 1
	// KindNotFound means the run id is unknown to the Job Service.
	KindNotFound
	// KindUnreachable means the request never produced a usable response
	// (connection failure, timeout, or a 5xx from the service).
	KindUnreachable
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidationRejected:
		return "validation_rejected"
	case KindNotFound:
		return "not_found"
	case KindUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// ServiceError is the typed failure of one Job Service call. No retry policy
// lives here; callers decide what is transient.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int    // 0 when the request never reached the service
	Detail     string // service-provided detail message, when present
	Err        error  // underlying transport error, when present
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("job service %s (status %d): %s", e.Kind, e.StatusCode, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("job service %s: %s", e.Kind, e.Err.Error())
	}
	return fmt.Sprintf("job service %s (status %d)", e.Kind, e.StatusCode)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func IsValidationRejected(err error) bool {
	return hasKind(err, KindValidationRejected)
}

func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

func IsUnreachable(err error) bool {
	return hasKind(err, KindUnreachable)
}

func hasKind(err error, kind ErrorKind) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == kind
}
