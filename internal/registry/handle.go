package registry

import (
	"fmt"
	"time"

	"github.com/probe-hub/probe-hub/pkg/api"
)

// RunHandle is the registry's record of one test run. The registry owns every
// live handle; callers outside the registry only ever see value copies taken
// under the per-id lock.
type RunHandle struct {
	// ID is the service-assigned run identifier, opaque to this process.
	ID string
	// Request is the originating run request.
	Request api.RunRequest
	// SubmittedAt is when the Job Service accepted the request.
	SubmittedAt time.Time
	// EstimatedDuration is the service's human-readable duration estimate.
	EstimatedDuration string

	// Status is the last-known lifecycle state. Mutations go through
	// SetStatus so a handle can never move backward or leave a terminal
	// state.
	Status      api.State
	Progress    float64
	CompletedAt time.Time

	// Result is attached once, when Status reaches completed.
	Result *api.RunResult
	// LastError is the message of the most recent failure seen while
	// tracking this run (probe error, result fetch failure).
	LastError string
	// TrackingLost marks a run whose polling loop timed out: the run may
	// still be progressing on the service, this session just stopped
	// watching it. Consumers should consult history for the true outcome.
	TrackingLost bool
}

// SetStatus applies a lifecycle transition, enforcing monotonicity:
// pending -> running -> {completed, failed, cancelled}. Re-reporting the
// current state is a no-op; anything that would move the handle backward or
// mutate a terminal handle is rejected.
func (h *RunHandle) SetStatus(next api.State) error {
	if next == h.Status {
		return nil
	}
	if !h.Status.CanTransition(next) {
		return fmt.Errorf("illegal run state transition %s -> %s for run %s", h.Status, next, h.ID)
	}
	h.Status = next
	if next.Terminal() && h.CompletedAt.IsZero() {
		h.CompletedAt = time.Now().UTC()
	}
	return nil
}

// Active reports whether the run is still in a non-terminal state.
func (h *RunHandle) Active() bool {
	return !h.Status.Terminal()
}

// ApplyStatusInfo folds a status probe payload into the handle. A payload
// that would violate monotonicity is ignored rather than applied; stale
// probe responses can arrive out of order.
func (h *RunHandle) ApplyStatusInfo(info *api.RunStatusInfo) {
	if info == nil {
		return
	}
	if err := h.SetStatus(info.Status); err != nil {
		return
	}
	if info.Progress > h.Progress {
		h.Progress = info.Progress
	}
	if info.CompletedAt != "" {
		if t, err := api.DateTimeFromString(info.CompletedAt); err == nil {
			h.CompletedAt = t
		}
	}
}
