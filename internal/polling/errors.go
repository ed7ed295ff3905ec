package polling

import (
	"errors"
	"fmt"
)

// Kind classifies why a polling loop gave up.
type Kind int

const (
	// KindTimeout means the attempt budget ran out without isDone accepting
	// a result. The probed operation's true state is unknown.
	KindTimeout Kind = iota + 1
	// KindCancelled means the loop observed a cancellation signal.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PollError reports a polling loop that ended without a done result.
type PollError struct {
	Kind     Kind
	Attempts int // probe invocations made before the loop stopped
}

func (e *PollError) Error() string {
	return fmt.Sprintf("polling %s after %d attempts", e.Kind, e.Attempts)
}

func IsTimeout(err error) bool {
	var pe *PollError
	return errors.As(err, &pe) && pe.Kind == KindTimeout
}

func IsCancelled(err error) bool {
	var pe *PollError
	return errors.As(err, &pe) && pe.Kind == KindCancelled
}
