package handlers

import (
	"errors"

	"github.com/probe-hub/probe-hub/internal/messages"
	"github.com/probe-hub/probe-hub/internal/orchestrator"
	"github.com/probe-hub/probe-hub/internal/polling"
	"github.com/probe-hub/probe-hub/internal/registry"
	"github.com/probe-hub/probe-hub/pkg/jobservice"
)

// mapCoreError translates the typed errors of the core packages into the
// message catalogue. No error type is swallowed; anything unrecognized falls
// through to UnknownError.
func mapCoreError(err error) (*messages.MessageCode, []any) {
	var invalidRequest *orchestrator.InvalidRequestError
	if errors.As(err, &invalidRequest) {
		return messages.InvalidRunRequest, []any{"Error", invalidRequest.Reason}
	}

	var runInProgress *orchestrator.RunInProgressError
	if errors.As(err, &runInProgress) {
		return messages.RunInProgress, []any{"RunId", runInProgress.ActiveRunID}
	}

	var notFound *registry.NotFoundError
	if errors.As(err, &notFound) {
		return messages.RunNotFound, []any{"RunId", notFound.RunID}
	}

	var svcErr *jobservice.ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case jobservice.KindValidationRejected:
			return messages.JobServiceRejected, []any{"Error", svcErr.Error()}
		case jobservice.KindNotFound:
			return messages.RunNotFound, []any{"RunId", svcErr.Detail}
		default:
			return messages.JobServiceUnreachable, []any{"Error", svcErr.Error()}
		}
	}

	var pollErr *polling.PollError
	if errors.As(err, &pollErr) {
		if pollErr.Kind == polling.KindTimeout {
			return messages.TrackingTimedOut, []any{"RunId", ""}
		}
	}

	return messages.UnknownError, []any{"Error", err.Error()}
}
