package server

import (
	"context"
	"net/http"

	"github.com/probe-hub/probe-hub/internal/executioncontext"
)

// newExecutionContext creates a new ExecutionContext for a request. This is called
// at the route level before invoking handlers so that every log entry for the
// request carries the same request ID and metadata.
func (s *Server) newExecutionContext(r *http.Request) *executioncontext.ExecutionContext {
	requestID, enhancedLogger := s.loggerWithRequest(r)

	return executioncontext.NewExecutionContext(
		context.Background(),
		requestID,
		enhancedLogger,
		r.Method,
		r.URL.RequestURI(),
		r.Body,
		r.PathValue,
	)
}
